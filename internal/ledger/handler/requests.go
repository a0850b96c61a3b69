package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"dealdesk/internal/ledger"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
)

// parseFilter reads from, to, subject_id, kind, actor, action and limit.
// Timestamps are RFC 3339 or a bare date (midnight UTC). action may repeat
// or be comma separated.
func parseFilter(q url.Values) (ledger.Filter, error) {
	var f ledger.Filter
	var err error

	if f.From, err = parseTime(q.Get("from"), "from"); err != nil {
		return ledger.Filter{}, err
	}
	if f.To, err = parseTime(q.Get("to"), "to"); err != nil {
		return ledger.Filter{}, err
	}
	if raw := strings.TrimSpace(q.Get("subject_id")); raw != "" {
		subject, err := uuid.Parse(raw)
		if err != nil {
			return ledger.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "invalid subject_id")
		}
		f.SubjectID = subject
	}
	if raw := strings.TrimSpace(q.Get("actor")); raw != "" {
		actor, err := id.ParseActorID(raw)
		if err != nil {
			return ledger.Filter{}, err
		}
		f.Actor = actor
	}
	f.Kind = ledger.SubjectKind(strings.TrimSpace(q.Get("kind")))
	for _, raw := range q["action"] {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				f.Actions = append(f.Actions, ledger.Action(a))
			}
		}
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return ledger.Filter{}, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		f.Limit = limit
	}
	return f, nil
}

func parseTime(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" must be RFC 3339 or YYYY-MM-DD")
}
