package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/parley/internal/cli"
)

var playCmd = &cobra.Command{
	Use:   "play [story]",
	Short: "Play a story in the terminal",
	Long: `Plays a story interactively. Choices are picked by number; type "exit" or
"quit" to stop. With --save, variables are restored before playing and saved
afterwards.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd, "", "")
		if err != nil {
			return err
		}

		start, _ := cmd.Flags().GetString("start")
		saveDir, _ := cmd.Flags().GetString("save")
		saveKey, _ := cmd.Flags().GetString("key")
		fresh, _ := cmd.Flags().GetBool("fresh")
		plain, _ := cmd.Flags().GetBool("plain")
		if !plain {
			plain = !isTerminal(cmd.OutOrStdout())
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunPlay(sigCtx, cli.PlayOptions{
			StoryPath: storyPath(cmd, args),
			Start:     start,
			SaveDir:   saveDir,
			SaveKey:   saveKey,
			Fresh:     fresh,
			Plain:     plain,
			Logger:    logger,
		}, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().String("start", "", `Address to start at ("knot" or "knot.stitch")`)
	playCmd.Flags().String("save", "", "Directory where variables are saved between plays")
	playCmd.Flags().String("key", "default", "Save slot used with --save")
	playCmd.Flags().Bool("fresh", false, "Ignore saved variables when starting")
	playCmd.Flags().Bool("plain", false, "Print plain text instead of styled markdown")
}

// isTerminal reports whether w is an interactive terminal. Styled output is
// only used there so piped transcripts stay readable.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
