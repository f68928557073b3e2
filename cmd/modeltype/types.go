package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/modeltype/core/types"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List primitive and defined types",
	Long: `List the primitive types and every model defined in the schema
directory. Aliases of a primitive are listed on the same line.`,
	Args: cobra.NoArgs,
	RunE: runTypes,
}

func init() {
	rootCmd.AddCommand(typesCmd)
}

func runTypes(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	if err := loadSchemas(app, false); err != nil {
		return err
	}

	byKind := make(map[types.Kind][]string)
	var kinds []types.Kind
	for _, name := range types.PrimitiveNames() {
		k, _ := types.PrimitiveKind(name)
		if _, seen := byKind[k]; !seen {
			kinds = append(kinds, k)
		}
		byKind[k] = append(byKind[k], name)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tKIND\tNAMES")
	fmt.Fprintln(w, "----\t----\t-----")
	for _, k := range kinds {
		names := byKind[k]
		fmt.Fprintf(w, "%s\tprimitive\t%s\n", k, strings.Join(names, ", "))
	}
	for _, name := range app.Engine.Registry().DefinedNames() {
		kind := "custom"
		if app.Engine.IsDefined(name) {
			kind = "model"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, kind, name)
	}
	return w.Flush()
}
