package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kayz/chainkit/internal/llm"
	"github.com/spf13/cobra"
)

var modelsPingTimeout int

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the chat backends and their default models",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tDEFAULT MODEL\tBASE URL\t")
		for _, v := range llm.Vendors() {
			mark := ""
			if strings.EqualFold(v.Name, cfg.LLM.Provider) {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Name, v.Model, v.BaseURL, mark)
		}
		return tw.Flush()
	},
}

var modelsPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send a one-line request to the configured model and report latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, done, err := openProvider(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		res := pingModel(ctx, p, time.Duration(modelsPingTimeout)*time.Second)
		lat := ""
		if res.Latency > 0 {
			lat = fmt.Sprintf(" (%s)", res.Latency.Truncate(time.Millisecond))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "- %s/%s: %s%s - %s\n", p.Name(), p.Model(), res.Status, lat, res.Detail)
		if res.Status != "PASS" {
			return fmt.Errorf("model ping failed: %s", res.Detail)
		}
		return nil
	},
}

type pingResult struct {
	Status  string
	Detail  string
	Latency time.Duration
}

func pingModel(ctx context.Context, p llm.Provider, timeout time.Duration) pingResult {
	result := pingResult{Status: "FAIL", Detail: "unknown"}

	ctx, cancel := context.WithTimeout(llm.WithStage(ctx, "ping"), timeout)
	defer cancel()
	start := time.Now()
	resp, err := p.Chat(ctx, llm.ChatRequest{
		SystemPrompt: "Reply with one short line.",
		Messages:     []llm.Message{{Role: "user", Content: "ping"}},
		MaxTokens:    64,
	})
	result.Latency = time.Since(start)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	if strings.TrimSpace(resp.Content) == "" {
		result.Detail = "empty response"
		return result
	}
	result.Status = "PASS"
	result.Detail = "ok"
	return result
}

func init() {
	modelsPingCmd.Flags().IntVar(&modelsPingTimeout, "timeout", 12, "Request timeout in seconds")
	modelsCmd.AddCommand(modelsPingCmd)
	rootCmd.AddCommand(modelsCmd)
}
