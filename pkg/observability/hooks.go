package observability

import (
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
)

// Combine returns hooks that call each hook set in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(e *domain.SessionEvent) {
			for _, h := range sets {
				if h.OnSessionStart != nil {
					h.OnSessionStart(e)
				}
			}
		},
		OnSessionEnd: func(e *domain.SessionEvent) {
			for _, h := range sets {
				if h.OnSessionEnd != nil {
					h.OnSessionEnd(e)
				}
			}
		},
		OnLine: func(e *domain.LineEvent) {
			for _, h := range sets {
				if h.OnLine != nil {
					h.OnLine(e)
				}
			}
		},
		OnChoiceSelected: func(e *domain.ChoiceEvent) {
			for _, h := range sets {
				if h.OnChoiceSelected != nil {
					h.OnChoiceSelected(e)
				}
			}
		},
	}
}

// LoggingHooks logs every lifecycle event at info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(e *domain.SessionEvent) {
			logger.Info("session_start", "session_id", e.Session.ID, "address", e.Session.Address)
		},
		OnSessionEnd: func(e *domain.SessionEvent) {
			logger.Info("session_end", "session_id", e.Session.ID)
		},
		OnLine: func(e *domain.LineEvent) {
			logger.Info("line",
				"session_id", e.SessionID,
				"cue", e.Line.Cue.String(),
				"tags", len(e.Line.Tags),
				"choices", len(e.Line.Choices),
			)
		},
		OnChoiceSelected: func(e *domain.ChoiceEvent) {
			logger.Info("choice_selected", "session_id", e.SessionID, "index", e.Choice.Index)
		},
	}
}
