package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [story]",
	Short: "Check a story for consistency",
	Long: `Reports diverts to unknown addresses, bad variable declarations, unknown
list items and expressions that do not compile. With --watch, a story
directory is checked again on every change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd, "", "")
		if err != nil {
			return err
		}
		watch, _ := cmd.Flags().GetBool("watch")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunValidate(sigCtx, cli.ValidateOptions{
			StoryPath: storyPath(cmd, args),
			Watch:     watch,
			Logger:    logger,
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolP("watch", "w", false, "Re-validate a story directory on every change")
}
