package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/kayz/chainkit/internal/prompt"
	"github.com/kayz/chainkit/internal/schema"
	"github.com/spf13/cobra"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas [name|file.yaml]",
	Short: "List built-in schemas, or print the format instructions of one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			s, err := schema.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s.FormatInstructions())
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCHEMA\tFIELDS\tDESCRIPTION")
		for _, name := range schema.BuiltinNames() {
			s, err := schema.Builtin(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name(), len(s.Fields()), s.Description())
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out, "\nTemplates:")
		for _, name := range prompt.BuiltinNames() {
			t := prompt.MustBuiltin(name)
			fmt.Fprintf(out, "  %-16s %v\n", name, t.InputVariables())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemasCmd)
}
