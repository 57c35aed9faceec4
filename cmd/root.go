package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/chainkit/internal/config"
	"github.com/kayz/chainkit/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel    string
	configPath  string
	envFile     string
	provider    string
	model       string
	temperature float32
	record      bool

	// cfg is resolved once per invocation by PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "chainkit",
	Short: "Prompt templates, structured output, pipelines and RAG against chat models",
	Long: `chainkit drives chat models from the command line.

Commands:
  chainkit ask          Render a prompt template and print the answer
  chainkit structured   Ask for JSON that matches a schema, repairing once
  chainkit pipeline     Run the multi-step DevOps incident pipeline
  chainkit split        Split a document into chunks
  chainkit rag          Answer a question from a document (naive or semantic)
  chainkit toon         Round-trip TOON data through the model
  chainkit schemas      List built-in schemas and their format instructions
  chainkit models       List chat backends, or ping the configured model
  chainkit transcript   Show exchanges recorded with --record
  chainkit config       Write or print the configuration`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		level, err := logger.ParseLevel(c.Logging.Level)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		logger.SetFormat(c.Logging.Format)

		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: .chainkit.yaml next to the executable)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "",
		"Chat provider: openai, claude, deepseek, qwen, kimi, zhipu, gemini, grok, ollama")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Chat model (default: provider default)")
	rootCmd.PersistentFlags().Float32Var(&temperature, "temperature", 0, "Sampling temperature")
	rootCmd.PersistentFlags().BoolVar(&record, "record", false,
		"Record every model exchange in the transcript database")
}

// loadConfig resolves settings with priority flag > environment > file > default.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	c, err := config.LoadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		c.SwitchProvider(provider)
		c.FillKeys(os.Getenv)
	}
	if flags.Changed("model") {
		c.LLM.Model = model
	}
	if flags.Changed("temperature") {
		c.LLM.Temperature = temperature
	}
	if flags.Changed("record") {
		c.Transcript.Enabled = record
	}
	if flags.Changed("log") {
		c.Logging.Level = logLevel
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
