package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/variables"
)

// Manager is the host API the server drives. *parley.Manager satisfies it.
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
	ImportVariables(snap domain.Snapshot) error
	SaveVariables(ctx context.Context) error
	LoadVariables(ctx context.Context) error
}

// Server exposes a Manager over HTTP. Calls are serialized with a mutex because
// the Manager itself is not safe for concurrent use.
type Server struct {
	manager Manager
	mu      sync.Mutex
	logger  *slog.Logger
	version string
	start   string
	maxBody int64
	metrics http.Handler
	Streams *StreamManager
}

// DefaultMaxBodySize bounds request bodies unless WithMaxBodySize says otherwise.
const DefaultMaxBodySize = 1 << 20

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithStartAddress sets the address used by POST /session/begin when the body names none.
func WithStartAddress(addr string) Option {
	return func(s *Server) {
		s.start = addr
	}
}

// WithMaxBodySize bounds request bodies to n bytes.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer wraps manager.
func NewServer(manager Manager, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		version: "dev",
		maxBody: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates a new HTTP handler for the manager.
func NewHandler(manager Manager, opts ...Option) http.Handler {
	return NewServer(manager, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/knots", s.GetKnots)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Post("/begin", s.Begin)
		r.Post("/advance", s.Advance)
		r.Post("/choose", s.Choose)
		r.Post("/end", s.End)
	})

	r.Route("/variables", func(r chi.Router) {
		r.Get("/", s.GetVariables)
		r.Put("/", s.PutVariables)
		r.Get("/export", s.ExportVariables)
		r.Post("/save", s.SaveVariables)
		r.Post("/load", s.LoadVariables)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return enableCORS(s.limitBody(r))
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionView is the response of every session endpoint.
type SessionView struct {
	State   domain.SessionState  `json:"state"`
	Session *domain.Session      `json:"session,omitempty"`
	Line    *domain.DialogueLine `json:"line,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

// BeginRequest is the body of POST /session/begin.
type BeginRequest struct {
	Address string `json:"address"`
}

// ChooseRequest is the body of POST /session/choose.
type ChooseRequest struct {
	Index *int `json:"index"`
}

// StatusFor maps an error class to an HTTP status.
func StatusFor(class domain.ErrorClass) int {
	switch class {
	case domain.ClassStateViolation:
		return http.StatusConflict
	case domain.ClassInvalidInput:
		return http.StatusBadRequest
	case domain.ClassTypeSafety:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	class := domain.Classify(err)
	status := StatusFor(class)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "class", class.String(), "error", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Class: class.String()})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	s.writeJSON(w, status, ErrorResponse{
		Error: fmt.Sprintf("invalid request body: %v", err),
		Class: domain.ClassInvalidInput.String(),
	})
}

// view must be called with s.mu held.
func (s *Server) view() SessionView {
	v := SessionView{State: s.manager.State()}
	if session, ok := s.manager.Session(); ok {
		v.Session = &session
	}
	if line, ok := s.manager.Line(); ok {
		v.Line = &line
	}
	return v
}

// snapshot must be called with s.mu held. Errors yield an empty snapshot.
func (s *Server) snapshot() domain.Snapshot {
	values, err := s.manager.Variables()
	if err != nil {
		return domain.Snapshot{}
	}
	records := make([]domain.VariableRecord, 0, len(values))
	for name, v := range values {
		records = append(records, domain.VariableRecord{Name: name, Value: v})
	}
	return domain.NewSnapshot(records...)
}

// mutate runs op under the lock and broadcasts the new line and any variable
// changes before releasing it, so events go out in the order calls were applied.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op func() error) {
	s.mu.Lock()
	before := s.snapshot()
	if err := op(); err != nil {
		s.mu.Unlock()
		s.writeError(w, r, err)
		return
	}
	view := s.view()
	diff := domain.DiffSnapshots(before, s.snapshot())
	s.Streams.Publish(EventSession, view)
	if diff != nil {
		s.Streams.Publish(EventVariables, diff)
	}
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, view)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "parley-http",
		"version": s.version,
	})
}

// GetKnots handles GET /knots.
func (s *Server) GetKnots(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	knots := s.manager.Knots()
	s.mu.Unlock()
	if knots == nil {
		knots = []string{}
	}
	s.writeJSON(w, http.StatusOK, knots)
}

// GetSession handles GET /session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	view := s.view()
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, view)
}

// Begin handles POST /session/begin. An empty body begins at the configured
// start address, or at the story start when there is none.
func (s *Server) Begin(w http.ResponseWriter, r *http.Request) {
	var body BeginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, r, err)
		return
	}
	if body.Address == "" {
		body.Address = s.start
	}
	s.mutate(w, r, func() error { return s.manager.Begin(body.Address) })
}

// Advance handles POST /session/advance.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.manager.Advance)
}

// Choose handles POST /session/choose.
func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	var body ChooseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if body.Index == nil {
		s.badRequest(w, r, errors.New("index is required"))
		return
	}
	s.mutate(w, r, func() error { return s.manager.SelectChoice(*body.Index) })
}

// End handles POST /session/end.
func (s *Server) End(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.manager.End)
}

// GetVariables handles GET /variables. It works during a live session.
func (s *Server) GetVariables(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	values, err := s.manager.Variables()
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, values)
}

// ExportVariables handles GET /variables/export with the snapshot codec document.
func (s *Server) ExportVariables(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap, err := s.manager.ExportVariables()
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := variables.EncodeJSON(snap)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// PutVariables handles PUT /variables with a snapshot codec document.
func (s *Server) PutVariables(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	snap, err := variables.DecodeJSON(data)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.mutate(w, r, func() error { return s.manager.ImportVariables(snap) })
}

// SaveVariables handles POST /variables/save.
func (s *Server) SaveVariables(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.manager.SaveVariables(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// LoadVariables handles POST /variables/load.
func (s *Server) LoadVariables(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func() error { return s.manager.LoadVariables(r.Context()) })
}
