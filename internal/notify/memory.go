package notify

import (
	"context"
	"log/slog"
	"sync"

	id "dealdesk/pkg/domain"
)

// MemoryNotifier records events in process and logs them. Used in tests and
// when no database is configured.
type MemoryNotifier struct {
	mu     sync.RWMutex
	events []Event
	logger *slog.Logger
}

func NewMemoryNotifier(logger *slog.Logger) *MemoryNotifier {
	return &MemoryNotifier{logger: logger}
}

func (n *MemoryNotifier) Notify(ctx context.Context, events ...Event) error {
	n.mu.Lock()
	n.events = append(n.events, events...)
	n.mu.Unlock()

	if n.logger != nil {
		for _, e := range events {
			n.logger.InfoContext(ctx, "notification queued",
				"kind", string(e.Kind),
				"subject_id", e.SubjectID.String(),
				"recipient", e.Recipient.String(),
			)
		}
	}
	return nil
}

// Events returns a copy of everything recorded so far.
func (n *MemoryNotifier) Events() []Event {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Event, len(n.events))
	copy(out, n.events)
	return out
}

// For returns the events addressed to recipient.
func (n *MemoryNotifier) For(recipient id.ActorID) []Event {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []Event
	for _, e := range n.events {
		if e.Recipient == recipient {
			out = append(out, e)
		}
	}
	return out
}
