package handler

import (
	"strings"

	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
)

// OpenRequest is the body of POST /responses.
type OpenRequest struct {
	ResponderID     string `json:"responder_id"`
	IntroductionRef string `json:"introduction_ref"`

	parsedResponder id.ActorID
}

func (r *OpenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	responder, err := id.ParseActorID(strings.TrimSpace(r.ResponderID))
	if err != nil || responder.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "responder_id must be a UUID")
	}
	r.parsedResponder = responder
	return nil
}

func (r *OpenRequest) ParsedResponder() id.ActorID { return r.parsedResponder }

// DeclineRequest is the optional body of POST /responses/{id}/decline.
type DeclineRequest struct {
	Reason string `json:"reason"`
}

func (r *DeclineRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}
