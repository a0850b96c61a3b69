package handler

import "dealdesk/internal/review/models"

type ListResponse struct {
	Appeals []models.Appeal `json:"appeals"`
	Count   int             `json:"count"`
}

func toListResponse(appeals []models.Appeal) ListResponse {
	if appeals == nil {
		appeals = []models.Appeal{}
	}
	return ListResponse{Appeals: appeals, Count: len(appeals)}
}
