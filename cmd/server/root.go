package main

import (
	"fmt"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// flagConfigFile is read before viper exists; every other flag is bound
// through viper in loadConfig.
var flagConfigFile string

var rootCmd = &cobra.Command{
	Use:   "threadchat",
	Short: "Threadchat is a topic based realtime chat server",
	Long: `Threadchat stores users, topics, conversations and messages in SQLite
and pushes every new message to all connected WebSocket sessions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (env DATABASE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
}

// newLogger builds the process logger: slog on top of a charmbracelet handler.
func newLogger(level string) (*slog.Logger, error) {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           lvl,
		Prefix:          "threadchat",
		ReportTimestamp: true,
	})
	return slog.New(handler), nil
}
