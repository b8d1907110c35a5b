package main

import (
	"fmt"
	"os"
	"strings"

	"researchdesk/internal/assistant"
	"researchdesk/internal/config"
	"researchdesk/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	endpoint   string
	watchDir   string
	sessionID  string

	// Logger for one-shot commands
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "researchdesk",
	Short: "researchdesk - terminal client for a research assistant",
	Long: `researchdesk is a chat client for a remote research assistant.

Ask questions, paste YouTube or web links, and upload PDFs that the
assistant indexes for the rest of the session.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive UI owns the terminal and logs to files only.
		if cmd == cmd.Root() {
			return nil
		}

		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Send one question and print the reply",
	Long: `Sends a single question to the assistant and prints the resulting
transcript entries.

Example:
  researchdesk ask "Summarize https://youtu.be/dQw4w9WgXcQ"
  researchdesk ask --session $ID "What did the paper conclude?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf]",
	Short: "Upload a document to the assistant",
	Long: `Uploads a document for the assistant to index. Only the first file is
used when several are given.

Example:
  researchdesk ingest paper.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the assistant service is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.researchdesk/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "Assistant service URL (or set RESEARCHDESK_ENDPOINT)")
	rootCmd.Flags().StringVar(&watchDir, "watch-dir", "", "Upload PDFs dropped into this folder")

	askCmd.Flags().StringVar(&sessionID, "session", "", "Reuse an existing session token")
	ingestCmd.Flags().StringVar(&sessionID, "session", "", "Reuse an existing session token")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file, applies flag overrides, validates,
// and starts file logging.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		cfg.Assistant.Endpoint = endpoint
	}
	if watchDir != "" {
		cfg.Uploads.WatchDir = watchDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logging.Initialize(logging.Config{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Dir:        cfg.Logging.Dir,
		JSONFormat: cfg.Logging.JSONFormat,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, err
	}
	logging.Boot("config loaded from %s, endpoint %s", path, cfg.Assistant.Endpoint)
	return cfg, nil
}

func newClient(cfg *config.Config) *assistant.Client {
	return assistant.NewClient(assistant.Config{
		BaseURL:       cfg.Assistant.Endpoint,
		AskTimeout:    cfg.GetAskTimeout(),
		IngestTimeout: cfg.GetIngestTimeout(),
		HealthTimeout: cfg.GetHealthTimeout(),
	})
}

// joinArgs joins command arguments into a single string
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
