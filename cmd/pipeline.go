package cmd

import (
	"fmt"
	"strings"

	"github.com/kayz/chainkit/internal/pipeline"
	"github.com/spf13/cobra"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <issue>",
	Short: "Run the DevOps incident pipeline: classify, root cause, actions, final JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, done, err := openProvider(cmd)
		if err != nil {
			return err
		}
		defer done()

		pl, err := pipeline.DevOps(p)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		pl.OnStep = func(r pipeline.StepResult) {
			if r.Index > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "=== STEP %d: %s ===\n%s\n", r.Index+1, strings.ToUpper(r.Title), r.Text)
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		_, err = pl.Run(ctx, map[string]any{pipeline.IssueInput: strings.Join(args, " ")})
		return err
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
