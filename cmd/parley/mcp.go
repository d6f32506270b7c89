package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/pkg/adapters/mcp"
	"github.com/aretw0/parley/pkg/observability"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [story]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes a story as MCP tools so agents can hold the dialogue.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig(cmd, args)
		if err != nil {
			return err
		}
		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		logger, err := newLogger(cmd, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		mgr, closer, err := openManager(sigCtx, cfg, logger, observability.LoggingHooks(logger))
		if err != nil {
			return err
		}
		defer closer.Close()

		srv := mcp.NewServer(mgr, strings.TrimSpace(parley.Version), mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("Starting parley MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			baseURL, _ := cmd.Flags().GetString("base-url")
			if baseURL == "" {
				baseURL = "http://localhost" + cfg.Addr
			}
			err := srv.ServeSSE(sigCtx, cfg.Addr, baseURL)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8080", "Address to listen on, only for SSE (PARLEY_ADDR)")
	mcpCmd.Flags().String("base-url", "", "Public base URL announced to SSE clients")
}
