package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/artpar/modeltype/bootstrap"
	"github.com/artpar/modeltype/config"
)

var (
	// Global flags
	cfgFile    string
	schemasDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "modeltype",
	Short: "Typed models from YAML definitions",
	Long: `modeltype loads model definitions from a directory of YAML files and
validates, converts and inspects data against them.

Examples:
  modeltype types                        # List known types
  modeltype check                        # Load and summarize all models
  modeltype validate int '"42"'          # Validate a JSON value against a type
  modeltype convert shop.Order order.json
  modeltype watch                        # Reload models as files change`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "modeltype.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&schemasDir, "schemas", "s", "", "schema directory (overrides config)")
}

// loadConfig reads the config file when present and falls back to the
// environment otherwise.
func loadConfig() (*config.Config, error) {
	return config.LoadWithFallback(cfgFile)
}

// newApp wires an application whose logs go to stderr. Metrics are
// registered on a private registry since the CLI does not serve them.
func newApp(cmd *cobra.Command, holder *config.Holder) (*bootstrap.App, error) {
	var cfg *config.Config
	if holder != nil {
		cfg = holder.Get()
	} else {
		loaded, err := loadConfig()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if schemasDir != "" {
		override := *cfg
		override.Schemas.Dir = schemasDir
		cfg = &override
	}

	return bootstrap.NewWithOptions(cfg, bootstrap.Options{
		Output:     errWriter(cmd),
		Registerer: prometheus.NewRegistry(),
		Holder:     holder,
	})
}

// loadSchemas loads the schema directory if it exists.
func loadSchemas(app *bootstrap.App, required bool) error {
	if _, err := os.Stat(app.Config.Schemas.Dir); err != nil && !required {
		return nil
	}
	_, err := app.LoadSchemas()
	return err
}

func errWriter(cmd *cobra.Command) io.Writer {
	return cmd.ErrOrStderr()
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
