package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// Event names sent on the SSE stream.
const (
	EventSession   = "session"
	EventVariables = "variables"
)

// Message is one server-sent event. IDs increase by one per published message.
type Message struct {
	ID    uint64
	Event string
	Data  []byte
}

// StreamManager fans session updates out to SSE subscribers.
type StreamManager struct {
	mu          sync.Mutex
	logger      *slog.Logger
	seq         uint64
	subscribers map[chan Message]struct{}
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[chan Message]struct{}),
	}
}

// Subscribe registers a buffered channel. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe() (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 10)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Publish encodes payload and sends it to every subscriber.
// Slow subscribers with a full buffer miss the message.
func (sm *StreamManager) Publish(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("stream encode failed", "event", event, "error", err)
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.seq++
	msg := Message{ID: sm.seq, Event: event, Data: data}
	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("subscriber buffer full, dropping message", "event", event, "id", msg.ID)
		}
	}
}

// SubscribeEvents handles GET /events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", msg.ID, msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}
