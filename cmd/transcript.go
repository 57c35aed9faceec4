package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kayz/chainkit/internal/transcript"
	"github.com/spf13/cobra"
)

var transcriptLimit int

var transcriptCmd = &cobra.Command{
	Use:   "transcript [run-id]",
	Short: "List recorded runs, or show the exchanges of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfg.Transcript.Path); os.IsNotExist(err) {
			return fmt.Errorf("no transcript at %s (run a command with --record first)", cfg.Transcript.Path)
		}
		store, err := transcript.Open(cfg.Transcript.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			runs, err := store.ListRuns(transcriptLimit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tWHEN\tCOMMAND\tMODEL")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s/%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Command, r.Provider, r.Model)
			}
			return tw.Flush()
		}

		exchanges, err := store.ListExchanges(args[0])
		if err != nil {
			return err
		}
		if len(exchanges) == 0 {
			return fmt.Errorf("run %s has no exchanges", args[0])
		}
		for i, ex := range exchanges {
			fmt.Fprintf(out, "=== #%d %s (%dms, %d/%d tokens) ===\n", i+1, ex.Stage, ex.LatencyMS, ex.InputTok, ex.OutputTok)
			for _, m := range ex.Messages {
				fmt.Fprintf(out, "[%s]\n%s\n", m.Role, strings.TrimSpace(m.Content))
			}
			if ex.Error != "" {
				fmt.Fprintf(out, "[error]\n%s\n\n", ex.Error)
				continue
			}
			fmt.Fprintf(out, "[response]\n%s\n\n", strings.TrimSpace(ex.Response))
		}
		return nil
	},
}

func init() {
	transcriptCmd.Flags().IntVar(&transcriptLimit, "limit", 20, "Number of runs to list")
	rootCmd.AddCommand(transcriptCmd)
}
