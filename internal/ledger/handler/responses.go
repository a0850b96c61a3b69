package handler

import "dealdesk/internal/ledger"

// ListResponse is the body of GET /audit/entries.
type ListResponse struct {
	Entries []ledger.Entry `json:"entries"`
	Count   int            `json:"count"`
}

func toListResponse(entries []ledger.Entry) ListResponse {
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return ListResponse{Entries: entries, Count: len(entries)}
}
