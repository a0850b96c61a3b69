package handler

import (
	"dealdesk/internal/ledger"
	id "dealdesk/pkg/domain"
)

// HistoryResponse is the body of GET /subjects/{id}/history.
type HistoryResponse struct {
	SubjectID id.SubjectID   `json:"subject_id"`
	Entries   []ledger.Entry `json:"entries"`
	Count     int            `json:"count"`
}

func toHistoryResponse(subjectID id.SubjectID, entries []ledger.Entry) HistoryResponse {
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return HistoryResponse{SubjectID: subjectID, Entries: entries, Count: len(entries)}
}
