// Package reviewtest builds in-memory review fixtures for service tests.
package reviewtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"dealdesk/internal/authz"
	"dealdesk/internal/ledger"
	ledgerstore "dealdesk/internal/ledger/store"
	"dealdesk/internal/notify"
	"dealdesk/internal/review/models"
	"dealdesk/internal/review/store"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/requestcontext"
)

// Env is a repository over in-memory stores plus one actor per role.
type Env struct {
	Repo     *store.Repository
	Ledger   *ledgerstore.InMemoryStore
	Facts    *store.InMemoryFactsStore
	Scores   *store.InMemoryScoreStore
	Notifier *notify.MemoryNotifier

	Owner        authz.PartyContext
	Counterparty authz.PartyContext
	Outsider     authz.PartyContext
	Reviewer     authz.ReviewerContext
	// ReviewerParty is the reviewer acting through party-scoped reads.
	ReviewerParty authz.PartyContext
	Scorer        authz.ScorerContext

	Now time.Time
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	e := &Env{
		Ledger:   ledgerstore.NewInMemory(),
		Facts:    store.NewInMemoryFactsStore(),
		Scores:   store.NewInMemoryScoreStore(),
		Notifier: notify.NewMemoryNotifier(nil),
		Now:      time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}
	repo, err := store.NewRepository(e.Facts, e.Scores, e.Ledger, ledgerstore.NewShardedTx())
	require.NoError(t, err)
	e.Repo = repo

	e.Owner = party(t)
	e.Counterparty = party(t)
	e.Outsider = party(t)

	reviewer := authz.Principal{ActorID: id.ActorID(uuid.New()), Roles: []authz.Role{authz.RoleReviewer}}
	e.Reviewer, err = authz.Reviewer(reviewer)
	require.NoError(t, err)
	e.ReviewerParty, err = authz.Party(reviewer)
	require.NoError(t, err)
	e.Scorer, err = authz.Scorer(authz.Principal{ActorID: id.ActorID(uuid.New()), Roles: []authz.Role{authz.RoleScorer}})
	require.NoError(t, err)
	return e
}

func party(t *testing.T) authz.PartyContext {
	t.Helper()
	pc, err := authz.Party(authz.Principal{ActorID: id.ActorID(uuid.New())})
	require.NoError(t, err)
	return pc
}

// Ctx returns a context pinned to the fixture clock.
func (e *Env) Ctx() context.Context {
	return requestcontext.WithTime(context.Background(), e.Now)
}

// Seed stores fresh facts owned by Owner and appends the given decision path
// directly through the subject's commands.
func (e *Env) Seed(t *testing.T, path ...models.Decision) id.SubjectID {
	t.Helper()
	facts, err := models.NewFacts(id.SubjectID(uuid.New()), e.Owner.Actor(), e.Counterparty.Actor(),
		"Spring campaign", models.Terms{AmountMinor: 250000, Currency: "EUR"}, "Three posts", e.Now)
	require.NoError(t, err)
	require.NoError(t, e.Facts.Create(context.Background(), facts))

	for _, step := range path {
		_, _, err := e.Repo.Execute(context.Background(), facts.ID, func(_ context.Context, s *models.Subject) ([]ledger.Entry, error) {
			switch step {
			case models.DecisionPending:
				return s.Submit(e.Owner.Actor(), e.Now)
			case models.DecisionConditionsCompleted:
				return s.CompleteConditions(e.Owner.Actor(), "done", true, e.Now)
			default:
				return s.RecordDecision(e.Reviewer.Actor(), step, "seeded", "", e.Now)
			}
		}, nil)
		require.NoError(t, err)
	}
	return facts.ID
}

// Load returns the subject's current projection.
func (e *Env) Load(t *testing.T, subjectID id.SubjectID) *models.Subject {
	t.Helper()
	s, err := e.Repo.Load(context.Background(), subjectID)
	require.NoError(t, err)
	return s
}

// Stream returns the subject's ledger entries.
func (e *Env) Stream(t *testing.T, subjectID id.SubjectID) []ledger.Entry {
	t.Helper()
	stream, err := e.Ledger.Stream(context.Background(), uuid.UUID(subjectID))
	require.NoError(t, err)
	return stream
}
