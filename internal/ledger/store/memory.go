package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"dealdesk/internal/ledger"
	"dealdesk/pkg/platform/sentinel"
)

// InMemoryStore keeps streams in process memory. Used for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	streams map[uuid.UUID][]ledger.Entry
	order   []ledger.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{streams: make(map[uuid.UUID][]ledger.Entry)}
}

// Append validates every sequence before writing any entry.
func (s *InMemoryStore) Append(_ context.Context, entries ...ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[uuid.UUID]int64, 1)
	for _, e := range entries {
		want, ok := next[e.SubjectID]
		if !ok {
			want = int64(len(s.streams[e.SubjectID])) + 1
		}
		if e.Sequence != want {
			return fmt.Errorf("append %s seq %d (next is %d): %w", e.SubjectID, e.Sequence, want, sentinel.ErrConflict)
		}
		next[e.SubjectID] = want + 1
	}

	for _, e := range entries {
		s.streams[e.SubjectID] = append(s.streams[e.SubjectID], e)
		s.order = append(s.order, e)
	}
	return nil
}

func (s *InMemoryStore) Stream(_ context.Context, subjectID uuid.UUID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream := s.streams[subjectID]
	out := make([]ledger.Entry, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *InMemoryStore) List(_ context.Context, filter ledger.Filter) ([]ledger.Entry, error) {
	s.mu.RLock()
	var out []ledger.Entry
	for _, e := range s.order {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return ledger.PositionOf(out[i]).Less(ledger.PositionOf(out[j]))
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
