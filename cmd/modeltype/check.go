package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and check every model definition",
	Long: `Load the schema directory and summarize the models it defines.

Checks:
  - YAML syntax and definition structure are valid
  - Expressions compile
  - Every attribute type resolves to a known type or model

Examples:
  modeltype check
  modeltype check --schemas ./models`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	app, err := newApp(cmd, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Checking %s...\n\n", app.Config.Schemas.Dir)

	models, err := app.LoadSchemas()
	if err != nil {
		fmt.Fprintf(out, "  %s Definitions load\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Definitions load (%d models)\n", checkMark, len(models))

	reg := app.Engine.Registry()
	var unresolved []string
	for _, m := range models {
		for _, a := range m.Attributes() {
			if !reg.IsValidType(a.Type) {
				unresolved = append(unresolved, fmt.Sprintf("%s.%s: %s", m.Name(), a.Name, a.Type))
			}
		}
	}
	sort.Strings(unresolved)

	if len(unresolved) > 0 {
		fmt.Fprintf(out, "  %s Attribute types resolve\n", crossMark)
		for _, u := range unresolved {
			fmt.Fprintf(out, "      unknown type %s\n", u)
		}
	} else {
		fmt.Fprintf(out, "  %s Attribute types resolve\n", checkMark)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPRIMARY\tATTRIBUTES\tMETHODS")
	fmt.Fprintln(w, "-----\t-------\t----------\t-------")
	for _, m := range models {
		primary := strings.Join(m.Primary(), ",")
		if primary == "" {
			primary = "-"
		}
		attrs := fmt.Sprintf("%d", len(m.Attributes()))
		if m.IsSchemaless() {
			attrs = "schemaless"
		}
		methods := strings.Join(m.Methods(), ",")
		if methods == "" {
			methods = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name(), primary, attrs, methods)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(unresolved) > 0 {
		return fmt.Errorf("%d attribute types do not resolve", len(unresolved))
	}
	return nil
}
