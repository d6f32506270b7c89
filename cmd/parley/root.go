package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley drives branching dialogue stories",
	Long: `Parley plays branching dialogue stories written as a YAML/JSON file or as a
directory of markdown knots, and exposes them over a terminal, HTTP or MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("story", ".", "Story file or directory")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

// storyPath returns the first argument when given, otherwise the --story flag.
func storyPath(cmd *cobra.Command, args []string) string {
	path, _ := cmd.Flags().GetString("story")
	if !cmd.Flags().Changed("story") && len(args) > 0 {
		path = args[0]
	}
	return path
}

// newLogger builds the stderr logger from the persistent flags. Defaults
// passed in apply when the flags were not set explicitly.
func newLogger(cmd *cobra.Command, defaultLevel, defaultFormat string) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	if !cmd.Flags().Changed("log-level") && defaultLevel != "" {
		levelName = defaultLevel
	}
	formatName, _ := cmd.Flags().GetString("log-format")
	if !cmd.Flags().Changed("log-format") && defaultFormat != "" {
		formatName = defaultFormat
	}

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format), nil
}
