package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph [story]",
	Short: "Export the story graph",
	Long:  `Outputs a Mermaid diagram (graph TD) of the story's knots, stitches and diverts.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := parley.LoadDefinition(cmd.Context(), cli.ResolveStoryPath(storyPath(cmd, args)))
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if current, _ := cmd.Flags().GetString("current"); current != "" {
			overlay = &graph.Overlay{Current: current}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("current", "", "Highlight this address")
}
