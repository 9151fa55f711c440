package trqp

import (
	"fmt"
	"time"
)

// Actions mapped to entity kinds by Authorize. Matching is case-sensitive.
const (
	ActionIssue  = "issue"
	ActionVerify = "verify"
)

// Request is a TRQP authorization or recognition query
type Request struct {
	EntityID    string          `json:"entity_id"`
	AuthorityID string          `json:"authority_id"`
	Action      string          `json:"action"`
	Resource    string          `json:"resource"`
	Context     *RequestContext `json:"context,omitempty"`
}

// RequestContext carries optional query parameters
type RequestContext struct {
	// Time is the RFC3339 instant to evaluate at. Default: now
	Time *string `json:"time,omitempty"`
}

// requestedTime returns the requested instant, or nil if none was given
func (r *Request) requestedTime() (*string, *time.Time, error) {
	if r.Context == nil || r.Context.Time == nil || *r.Context.Time == "" {
		return nil, nil, nil
	}
	t, err := time.Parse(time.RFC3339, *r.Context.Time)
	if err != nil {
		return nil, nil, &ValidationError{Field: "context.time", Reason: fmt.Sprintf("not an RFC3339 timestamp: %q", *r.Context.Time)}
	}
	return r.Context.Time, &t, nil
}

// response fields shared by both query types
type echo struct {
	EntityID      string  `json:"entity_id"`
	AuthorityID   string  `json:"authority_id"`
	Action        string  `json:"action"`
	Resource      string  `json:"resource"`
	TimeEvaluated string  `json:"time_evaluated"`
	TimeRequested *string `json:"time_requested,omitempty"`
	Message       string  `json:"message"`
}

// AuthorizationResponse answers whether an entity may perform an action
type AuthorizationResponse struct {
	echo
	Authorized bool `json:"authorized"`
}

// RecognitionResponse answers whether an authority recognizes an entity
type RecognitionResponse struct {
	echo
	Recognized bool `json:"recognized"`
}

// ValidationError reports a malformed query
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
