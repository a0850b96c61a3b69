// Package store persists the parts of a review subject that are not
// projections of the ledger: the collaborator-owned facts and the current
// score snapshot.
package store

import (
	"context"
	"fmt"
	"sync"

	"dealdesk/internal/review/models"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/platform/sentinel"
)

// InMemoryFactsStore keeps subject facts in a map.
type InMemoryFactsStore struct {
	mu    sync.RWMutex
	facts map[id.SubjectID]models.Facts
}

func NewInMemoryFactsStore() *InMemoryFactsStore {
	return &InMemoryFactsStore{facts: make(map[id.SubjectID]models.Facts)}
}

func (s *InMemoryFactsStore) Create(_ context.Context, f *models.Facts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.facts[f.ID]; ok {
		return fmt.Errorf("subject %s: %w", f.ID, sentinel.ErrConflict)
	}
	s.facts[f.ID] = *f
	return nil
}

func (s *InMemoryFactsStore) FindByID(_ context.Context, subjectID id.SubjectID) (*models.Facts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facts[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &f, nil
}

func (s *InMemoryFactsStore) UpdateStatus(_ context.Context, subjectID id.SubjectID, status models.LifecycleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facts[subjectID]
	if !ok {
		return sentinel.ErrNotFound
	}
	f.Status = status
	s.facts[subjectID] = f
	return nil
}

// InMemoryScoreStore keeps the current score per subject.
type InMemoryScoreStore struct {
	mu     sync.RWMutex
	scores map[id.SubjectID]scoring.Score
}

func NewInMemoryScoreStore() *InMemoryScoreStore {
	return &InMemoryScoreStore{scores: make(map[id.SubjectID]scoring.Score)}
}

// Put replaces the current score.
func (s *InMemoryScoreStore) Put(_ context.Context, score *scoring.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.SubjectID] = *score
	return nil
}

func (s *InMemoryScoreStore) Current(_ context.Context, subjectID id.SubjectID) (*scoring.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &score, nil
}
