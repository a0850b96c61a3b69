//go:build property

package models_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"dealdesk/internal/clock"
	"dealdesk/internal/ledger"
	"dealdesk/internal/response/models"
	id "dealdesk/pkg/domain"
)

// Properties: whatever sequence of answers and reconsiderations is tried,
// history only grows, holds at most one reconsidered entry, and replaying
// the accepted entries reproduces the record.
func TestResponseRecordProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	window := clock.NewWindow(0)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("history invariants hold under random commands", prop.ForAll(
		func(ops []int, gapsMin []int) bool {
			requester, responder := id.ActorID(uuid.New()), id.ActorID(uuid.New())
			r, stream, err := models.Open(id.RecordID(uuid.New()), requester, responder, "", start)
			if err != nil {
				return false
			}
			now := start
			for i, op := range ops {
				if i < len(gapsMin) {
					now = now.Add(time.Duration(gapsMin[i]) * time.Minute)
				}
				before := len(r.History)
				var entries []ledger.Entry
				switch op % 3 {
				case 0:
					entries, err = r.Accept(responder, now)
				case 1:
					entries, err = r.Decline(responder, "", now)
				default:
					entries, err = r.Reconsider(responder, window, now)
				}
				if err != nil {
					if len(r.History) != before {
						return false
					}
					continue
				}
				stream = append(stream, entries...)
				if len(r.History) != before+1 {
					return false
				}
			}

			reconsidered := 0
			for _, h := range r.History {
				if h.Status == models.HistoryReconsidered {
					reconsidered++
				}
			}
			if reconsidered > 1 {
				return false
			}
			replayed, err := models.Replay(r.ID, stream)
			return err == nil && replayed.Status == r.Status && len(replayed.History) == len(r.History)
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.IntRange(0, 4*24*60)),
	))

	properties.TestingRun(t)
}
