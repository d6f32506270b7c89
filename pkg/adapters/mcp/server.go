package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/parley/pkg/domain"
)

// Resource URIs served next to the tools.
const (
	KnotsURI     = "parley://knots"
	VariablesURI = "parley://variables"
)

// Manager is the host API the tools drive. *parley.Manager satisfies it.
type Manager interface {
	Begin(addr string) error
	Advance() error
	SelectChoice(index int) error
	End() error
	Line() (domain.DialogueLine, bool)
	Session() (domain.Session, bool)
	State() domain.SessionState
	Knots() []string
	Variables() (map[string]domain.Value, error)
	ExportVariables() (domain.Snapshot, error)
}

// DialogueView is the structured result of every session tool.
type DialogueView struct {
	State   domain.SessionState  `json:"state" jsonschema_description:"idle, active or ended"`
	Session *domain.Session      `json:"session,omitempty" jsonschema_description:"The live session, if any"`
	Line    *domain.DialogueLine `json:"line,omitempty" jsonschema_description:"The current dialogue line, if any"`
}

// BeginArgs are the arguments of begin_dialogue.
type BeginArgs struct {
	Address string `json:"address"`
}

// ChoiceArgs are the arguments of select_choice.
type ChoiceArgs struct {
	Index *int `json:"index"`
}

// NoArgs is used by tools without parameters.
type NoArgs struct{}

// Server exposes a Manager as an MCP server.
type Server struct {
	manager   Manager
	mu        sync.Mutex
	logger    *slog.Logger
	mcpServer *server.MCPServer
	tools     []server.ServerTool
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer registers the dialogue tools for manager.
func NewServer(manager Manager, version string, opts ...Option) *Server {
	s := &Server{
		manager:   manager,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		mcpServer: server.NewMCPServer("parley-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for transports other than the built-in ones.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Tools lists the registered tools.
func (s *Server) Tools() []server.ServerTool {
	return s.tools
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.tools = []server.ServerTool{
		{
			Tool: mcp.NewTool("begin_dialogue",
				mcp.WithDescription("Begin a dialogue session. Without an address the story starts from the top."),
				mcp.WithString("address", mcp.Description(`Optional "knot" or "knot.stitch" to start at`)),
				mcp.WithOutputSchema[DialogueView](),
			),
			Handler: mcp.NewStructuredToolHandler(s.handleBegin),
		},
		{
			Tool: mcp.NewTool("advance_dialogue",
				mcp.WithDescription("Produce the next line. Only valid when the current cue is can_continue."),
				mcp.WithOutputSchema[DialogueView](),
			),
			Handler: mcp.NewStructuredToolHandler(s.handleAdvance),
		},
		{
			Tool: mcp.NewTool("select_choice",
				mcp.WithDescription("Select one of the current line's choices by its index."),
				mcp.WithNumber("index", mcp.Required(), mcp.Description("Index of the choice to select")),
				mcp.WithOutputSchema[DialogueView](),
			),
			Handler: mcp.NewStructuredToolHandler(s.handleSelect),
		},
		{
			Tool: mcp.NewTool("end_dialogue",
				mcp.WithDescription("End the live session."),
				mcp.WithOutputSchema[DialogueView](),
			),
			Handler: mcp.NewStructuredToolHandler(s.handleEnd),
		},
		{
			Tool: mcp.NewTool("current_line",
				mcp.WithDescription("Show the session state and the current line without changing anything."),
				mcp.WithOutputSchema[DialogueView](),
			),
			Handler: mcp.NewStructuredToolHandler(s.handleCurrent),
		},
		{
			Tool: mcp.NewTool("export_variables",
				mcp.WithDescription("Export the story variables. Fails while a session is live."),
			),
			Handler: s.handleExport,
		},
	}
	s.mcpServer.AddTools(s.tools...)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(KnotsURI, "Story knots",
		mcp.WithResourceDescription("Every knot and knot.stitch address of the loaded story"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		s.mu.Lock()
		knots := s.manager.Knots()
		s.mu.Unlock()
		return jsonResource(KnotsURI, knots)
	})

	s.mcpServer.AddResource(mcp.NewResource(VariablesURI, "Story variables",
		mcp.WithResourceDescription("Current value of every tracked variable"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		s.mu.Lock()
		values, err := s.manager.Variables()
		s.mu.Unlock()
		if err != nil {
			return nil, classified(err)
		}
		return jsonResource(VariablesURI, values)
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}

// classified prefixes err with its class so agents can tell retryable misuse from bad input.
func classified(err error) error {
	return fmt.Errorf("%s: %w", domain.Classify(err), err)
}

// view must be called with s.mu held.
func (s *Server) view() DialogueView {
	v := DialogueView{State: s.manager.State()}
	if session, ok := s.manager.Session(); ok {
		v.Session = &session
	}
	if line, ok := s.manager.Line(); ok {
		v.Line = &line
	}
	return v
}

func (s *Server) run(tool string, op func() error) (DialogueView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := op(); err != nil {
		s.logger.Warn("tool failed", "tool", tool, "class", domain.Classify(err).String(), "error", err)
		return DialogueView{}, classified(err)
	}
	return s.view(), nil
}

func (s *Server) handleBegin(ctx context.Context, request mcp.CallToolRequest, args BeginArgs) (DialogueView, error) {
	return s.run("begin_dialogue", func() error { return s.manager.Begin(args.Address) })
}

func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest, args NoArgs) (DialogueView, error) {
	return s.run("advance_dialogue", s.manager.Advance)
}

func (s *Server) handleSelect(ctx context.Context, request mcp.CallToolRequest, args ChoiceArgs) (DialogueView, error) {
	if args.Index == nil {
		return DialogueView{}, errors.New("invalid_input: index is required")
	}
	return s.run("select_choice", func() error { return s.manager.SelectChoice(*args.Index) })
}

func (s *Server) handleEnd(ctx context.Context, request mcp.CallToolRequest, args NoArgs) (DialogueView, error) {
	return s.run("end_dialogue", s.manager.End)
}

func (s *Server) handleCurrent(ctx context.Context, request mcp.CallToolRequest, args NoArgs) (DialogueView, error) {
	return s.run("current_line", func() error { return nil })
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	snap, err := s.manager.ExportVariables()
	s.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(classified(err).Error()), nil
	}

	values := make(map[string]domain.Value, len(snap.Records))
	for _, rec := range snap.Records {
		values[rec.Name] = rec.Value
	}
	data, err := json.Marshal(values)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode variables: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
