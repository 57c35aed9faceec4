package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kayz/chainkit/internal/logger"
	"github.com/kayz/chainkit/internal/schema"
	"github.com/kayz/chainkit/internal/structured"
	"github.com/spf13/cobra"
)

var (
	structSchema       string
	structTemplate     string
	structTemplateFile string
	structBuiltin      string
	structInputs       []string
	structNoRepair     bool
)

var structuredCmd = &cobra.Command{
	Use:   "structured [input...]",
	Short: "Ask for JSON that matches a schema, repairing a bad reply once",
	Long: `Send each input through a template that carries the schema's format
instructions, validate the reply and, when it does not match, ask the model
once to repair it.

Inputs come from --input, positional arguments, or stdin (one per line).
A failed input is reported and the next one is processed; the command fails
only when every input failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(structSchema)
		if err != nil {
			return err
		}
		tmpl, err := resolveTemplate(structTemplate, structTemplateFile, structBuiltin)
		if err != nil {
			return err
		}
		if !tmpl.Has("input") {
			return fmt.Errorf("template %s has no {input} placeholder", tmpl.Name())
		}

		inputs := append(append([]string{}, structInputs...), args...)
		if len(inputs) == 0 {
			if inputs, err = readLines(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no input given")
		}

		p, done, err := openProvider(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		out := cmd.OutOrStdout()
		gen := &structured.Generator{Provider: p, Schema: s, DisableRepair: structNoRepair}
		failed := 0
		for i, input := range inputs {
			fmt.Fprintf(out, "=== INPUT %d/%d ===\n%s\n\n", i+1, len(inputs), input)

			text, err := structured.Render(s, tmpl, map[string]any{"input": input})
			if err != nil {
				return err
			}
			res, err := gen.Generate(ctx, text)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed++
				logger.Warn("[Structured] Input %d failed: %v", i+1, err)
				printFailure(out, err)
				continue
			}

			data, err := res.Output.JSON()
			if err != nil {
				return err
			}
			if res.Repaired {
				fmt.Fprintln(out, "(repaired after one retry)")
			}
			fmt.Fprintf(out, "%s\n\n", data)
		}

		if failed == len(inputs) {
			return fmt.Errorf("all %d input(s) failed", failed)
		}
		return nil
	},
}

// printFailure writes a readable diagnostic for a failed input.
func printFailure(w io.Writer, err error) {
	var exhausted *structured.RepairExhaustedError
	var violation *schema.ViolationError
	switch {
	case errors.As(err, &exhausted):
		fmt.Fprintln(w, "REPAIR FAILED: the repaired reply still does not match the schema")
		writeIssues(w, "first reply", exhausted.First.Issues)
		writeIssues(w, "repaired reply", exhausted.Second.Issues)
		fmt.Fprintf(w, "raw repaired reply:\n%s\n\n", exhausted.Second.Raw)
	case errors.As(err, &violation):
		fmt.Fprintln(w, "SCHEMA VIOLATION")
		writeIssues(w, "reply", violation.Issues)
		fmt.Fprintf(w, "raw reply:\n%s\n\n", violation.Raw)
	default:
		fmt.Fprintf(w, "ERROR: %v\n\n", err)
	}
}

func writeIssues(w io.Writer, label string, issues []string) {
	fmt.Fprintf(w, "%s:\n", label)
	for _, issue := range issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func init() {
	structuredCmd.Flags().StringVar(&structSchema, "schema", "devops_troubleshoot", "Built-in schema name or YAML schema file")
	structuredCmd.Flags().StringVar(&structTemplate, "template", "", "Inline template text with {input} and optionally {format_instructions}")
	structuredCmd.Flags().StringVar(&structTemplateFile, "template-file", "", "YAML template file (relative to prompts dir)")
	structuredCmd.Flags().StringVar(&structBuiltin, "builtin", "analyst", "Library template name")
	structuredCmd.Flags().StringArrayVar(&structInputs, "input", nil, "Input text (repeatable)")
	structuredCmd.Flags().BoolVar(&structNoRepair, "no-repair", false, "Report a violation instead of asking for a repair")
	rootCmd.AddCommand(structuredCmd)
}
