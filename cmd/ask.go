package cmd

import (
	"fmt"
	"strings"

	"github.com/kayz/chainkit/internal/llm"
	"github.com/spf13/cobra"
)

var (
	askTemplate     string
	askTemplateFile string
	askBuiltin      string
	askVars         []string
)

var askCmd = &cobra.Command{
	Use:   "ask [text]",
	Short: "Render a prompt template and print the model's answer",
	Long: `Render a prompt template and send it as a single request.

The template comes from --template, --template-file or a library template
(--builtin, default "explain"). Values are passed with --var key=value. When
the template has exactly one variable without a value, the positional text
fills it:

  chainkit ask "Kubernetes HPA"
  chainkit ask --builtin summary --var subject=LangChain`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpl, err := resolveTemplate(askTemplate, askTemplateFile, askBuiltin)
		if err != nil {
			return err
		}
		values, err := parseVars(askVars)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			var open []string
			for _, v := range tmpl.InputVariables() {
				if _, ok := values[v]; !ok {
					open = append(open, v)
				}
			}
			if len(open) != 1 {
				return fmt.Errorf("template %s has %d unset variables; pass them with --var", tmpl.Name(), len(open))
			}
			values[open[0]] = strings.Join(args, " ")
		}

		text, err := tmpl.Format(values)
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
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(answer))
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askTemplate, "template", "", "Inline template text with {placeholders}")
	askCmd.Flags().StringVar(&askTemplateFile, "template-file", "", "YAML template file (relative to prompts dir)")
	askCmd.Flags().StringVar(&askBuiltin, "builtin", "explain", "Library template name")
	askCmd.Flags().StringArrayVar(&askVars, "var", nil, "Template value as key=value (repeatable)")
	rootCmd.AddCommand(askCmd)
}
