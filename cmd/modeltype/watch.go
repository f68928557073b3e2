package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/modeltype/bootstrap"
	"github.com/artpar/modeltype/config"
	"github.com/artpar/modeltype/core/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Load models and reload them as definitions change",
	Long: `Load the schema directory and keep it loaded, reloading whenever a
definition file changes or on SIGHUP. A failed reload keeps the previous
models. When a config file is present it is watched too.

Examples:
  modeltype watch
  modeltype watch --schemas ./models`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var holder *config.Holder
	if _, err := os.Stat(cfgFile); err == nil {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger := bootstrap.NewLogger(cfg.Logging, errWriter(cmd))
		holder, err = config.NewHolder(cfgFile, logger)
		if err != nil {
			return err
		}
		if err := holder.WatchFile(); err != nil {
			return err
		}
	}

	app, err := newApp(cmd, holder)
	if err != nil {
		return err
	}

	models, err := app.LoadSchemas()
	if err != nil {
		app.Shutdown()
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s watching %s (%d models)\n", checkMark, app.Config.Schemas.Dir, len(models))

	app.Events.Subscribe(events.SchemasReloaded, func(ctx context.Context, e events.Event) error {
		_, err := fmt.Fprintf(out, "%s reloaded %v models\n", checkMark, e.Data["models"])
		return err
	})
	app.Events.Subscribe(events.SchemasFailed, func(ctx context.Context, e events.Event) error {
		_, err := fmt.Fprintf(out, "%s %v (keeping previous models)\n", crossMark, e.Err)
		return err
	})

	return app.Watch(cmd.Context())
}
