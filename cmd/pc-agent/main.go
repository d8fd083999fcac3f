package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Odwa2003/Phone-Controller/internal/config"
)

var (
	overrides config.Overrides

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pc-agent",
	Short: "Desktop control agent driven by a phone through a relay",
	Long: `pc-agent connects out to a WebSocket relay, registers under its pair id,
and executes the pointer, keyboard and application commands the paired phone
sends. Natural-language commands are translated into the same vocabulary.

Run without a subcommand to start the relay client.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env file if it exists (for development)
		envErr := godotenv.Load()

		var err error
		cfg, err = config.Load(overrides)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		reportDotEnv(logger, envErr)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelay(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&overrides.RelayURL, "relay-url", "", "Relay WebSocket URL (or set RELAY_URL)")
	flags.StringVar(&overrides.PairID, "pair-id", "", "Pair id to register under (or set PAIR_ID)")
	flags.StringVar(&overrides.Token, "token", "", "Shared secret (or set PC_AGENT_TOKEN)")
	flags.StringVar(&overrides.Translator, "translator", "", "Translator provider: auto, anthropic, openai, none")
	flags.BoolVar(&overrides.DryRun, "dry-run", false, "Record input actions instead of performing them")
	flags.BoolVarP(&overrides.Verbose, "verbose", "v", false, "Enable verbose logging")

	serveCmd.Flags().StringVar(&overrides.ListenAddr, "listen", "", "Listen address (or set LISTEN_ADDR)")
	serveCmd.Flags().BoolVar(&serveWithRelay, "with-relay", false, "Also run the relay client")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(translateCmd)
}

// reportDotEnv logs the .env outcome once a logger exists.
func reportDotEnv(log *zap.Logger, err error) {
	if err != nil {
		log.Info("No .env file found, using environment variables")
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
