package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kayz/chainkit/internal/llm"
	"github.com/kayz/chainkit/internal/prompt"
	"github.com/kayz/chainkit/internal/toon"
	"github.com/spf13/cobra"
	toongo "github.com/toon-format/toon-go"
)

const defaultToonTask = `Transform the topics table by ADDING two new columns:
- "estimasi_durasi_jam" (integer, 2-10)
- "difficulty" (one of: beginner, intermediate, advanced)

The header MUST become: "topics[N]{id,name,priority,estimasi_durasi_jam,difficulty}".
For every row, append the two new values in the correct order.`

const defaultStudyPlan = `{
  "topics": [
    {"id": 1, "name": "LangChain basics", "priority": "high"},
    {"id": 2, "name": "Prompt engineering", "priority": "high"},
    {"id": 3, "name": "RAG with vector DB", "priority": "medium"}
  ]
}`

var (
	toonInput string
	toonTask  string
	toonLocal bool
)

var toonCmd = &cobra.Command{
	Use:   "toon",
	Short: "Send JSON data to the model as TOON and decode the TOON it returns",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := []byte(defaultStudyPlan)
		if toonInput != "" {
			var err error
			if data, err = os.ReadFile(toonInput); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
		}
		value, err := toon.FromJSON(data)
		if err != nil {
			return err
		}
		encoded, err := toongo.MarshalString(value, toongo.WithIndent(2))
		if err != nil {
			return fmt.Errorf("encode toon: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "=== TOON INPUT ===\n%s\n\n", encoded)
		if toonLocal {
			return printDecoded(cmd, encoded)
		}

		text, err := prompt.MustBuiltin("toon_transform").Format(map[string]any{
			"input_toon":       encoded,
			"task_description": toonTask,
		})
		if err != nil {
			return err
		}

		p, done, err := openProvider(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		answer, err := llm.Invoke(ctx, p, text)
		if err != nil {
			return err
		}
		body := toon.StripFence(answer)
		fmt.Fprintf(out, "=== TOON OUTPUT FROM MODEL ===\n%s\n\n", body)
		return printDecoded(cmd, body)
	},
}

// printDecoded parses body in strict mode and prints it as indented JSON.
func printDecoded(cmd *cobra.Command, body string) error {
	decoded, err := toongo.DecodeString(body, toongo.WithStrictMode(true), toongo.WithDecoderIndent(2))
	if err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	var js bytes.Buffer
	enc := json.NewEncoder(&js)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(decoded); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "=== DECODED ===\n%s", js.String())
	return nil
}

func init() {
	toonCmd.Flags().StringVar(&toonInput, "input", "", "JSON file to send (default: a small study plan)")
	toonCmd.Flags().StringVar(&toonTask, "task", defaultToonTask, "Task description for the model")
	toonCmd.Flags().BoolVar(&toonLocal, "local", false, "Only encode and decode locally, without calling the model")
	rootCmd.AddCommand(toonCmd)
}
