package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithDeps(defaultDeps())
}

func newRootCmdWithDeps(d deps) *cobra.Command {
	app := newApp(d)

	rootCmd := &cobra.Command{
		Use:           "ethai",
		Short:         "ethai: talk to an on-chain AI oracle from the terminal",
		Long:          "ethai sends prompts to an AI oracle contract, waits for the transaction receipt and the oracle callback, and keeps a persistent conversation per session.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "Config file (default ~/.ethai/config.toml)")
	flags.StringVar(&app.envFile, "env-file", ".env", "Dotenv file loaded before reading ETHAI_* variables")
	flags.StringVar(&app.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&app.logFormat, "log-format", "text", "Log format (text, json)")
	flags.String("rpc-url", "", "JSON-RPC endpoint of the chain node")
	flags.String("contract-address", "", "Oracle consumer contract address")
	flags.String("oracle-address", "", "AI oracle address")
	flags.String("sender-address", "", "Expected address of the signing key")
	flags.String("key-ref", "", "Secret store reference of the signing key")
	flags.Int64("chain-id", 0, "Chain id the node must report")
	flags.Uint64("gas-limit", 0, "Gas limit for oracle requests")
	flags.Int64("gas-price-gwei", 0, "Gas price in gwei")
	flags.Int64("model-id", 0, "Oracle model id")
	flags.String("system-prompt", "", "System prompt for new sessions")
	flags.String("sessions-path", "", "Sessions file (default ~/.ethai/sessions.toml)")
	flags.String("journal-path", "", "Request journal database (default ~/.ethai/journal.db)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newChatCmd(app),
		newSubmitCmd(app),
		newReceiptCmd(app),
		newAwaitCmd(app),
		newFeeCmd(app),
		newRequestCmd(app),
		newSessionCmd(app),
		newKeyCmd(app),
		newHistoryCmd(app),
		newChallengeCmd(app),
	)

	return rootCmd
}

func configureLogger(logger *logrus.Logger, level string, format string, out io.Writer) error {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(parsed)
	logger.SetOutput(out)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", format)
	}

	return nil
}
