// Package trqp evaluates Trust Registry Query Protocol authorization and
// recognition queries against the record store.
//
// A negative answer is a normal response, not an error. Errors are
// returned only for malformed queries and store failures.
package trqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alechenninger/trustreg/internal/clock"
	"github.com/alechenninger/trustreg/internal/store"
)

// Config configures an Evaluator
type Config struct {
	Store    store.Store
	Clock    clock.Clock
	Observer QueryObserver
}

// Evaluator answers TRQP queries
type Evaluator struct {
	store    store.Store
	clock    clock.Clock
	observer QueryObserver
}

// NewEvaluator creates an evaluator
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystemClock()
	}
	if cfg.Observer == nil {
		cfg.Observer = NoOpQueryObserver{}
	}
	return &Evaluator{store: cfg.Store, clock: cfg.Clock, observer: cfg.Observer}, nil
}

// begin parses the requested time and fills the echoed response fields
func (e *Evaluator) begin(req *Request) (echo, time.Time, error) {
	now := e.clock.Now().UTC()
	requested, at, err := req.requestedTime()
	if err != nil {
		return echo{}, time.Time{}, err
	}
	if at == nil {
		at = &now
	}
	return echo{
		EntityID:      req.EntityID,
		AuthorityID:   req.AuthorityID,
		Action:        req.Action,
		Resource:      req.Resource,
		TimeEvaluated: now.Format(time.RFC3339),
		TimeRequested: requested,
	}, *at, nil
}

// authority returns the registry for an ecosystem DID, or nil if none
func (e *Evaluator) authority(ctx context.Context, ecosystemDID string) (*store.Registry, error) {
	reg, err := e.store.GetRegistryByDID(ctx, ecosystemDID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up authority: %w", err)
	}
	return reg, nil
}

// Authorize answers whether EntityID may perform Action on Resource under AuthorityID.
//
// The entity must be active, valid at the evaluation time, and linked to a
// credential schema whose type contains Resource, ignoring case.
func (e *Evaluator) Authorize(ctx context.Context, req *Request) (_ *AuthorizationResponse, err error) {
	ctx, probe := e.observer.QueryStarted(ctx, QueryAuthorization, req)
	defer func() {
		if err != nil {
			probe.Failed(err)
		}
		probe.End()
	}()

	resp := &AuthorizationResponse{}
	var at time.Time
	resp.echo, at, err = e.begin(req)
	if err != nil {
		return nil, err
	}

	decide := func(authorized bool, format string, args ...any) (*AuthorizationResponse, error) {
		resp.Authorized = authorized
		resp.Message = fmt.Sprintf(format, args...)
		probe.Decided(authorized, resp.Message)
		return resp, nil
	}

	reg, err := e.authority(ctx, req.AuthorityID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return decide(false, "authority not found: %s", req.AuthorityID)
	}

	var kind store.EntityKind
	switch req.Action {
	case ActionIssue:
		kind = store.KindIssuer
	case ActionVerify:
		kind = store.KindVerifier
	default:
		return decide(false, "unknown action %q: expected %q or %q", req.Action, ActionIssue, ActionVerify)
	}

	entity, err := e.store.GetEntity(ctx, kind, req.EntityID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && entity.RegistryID != reg.ID) {
		return decide(false, "entity not found: no %s %s in %s", kind, req.EntityID, req.AuthorityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", kind, err)
	}

	if entity.Status == store.EntityActive && entity.Window().Contains(at) {
		matched, err := e.linkedSchemaMatches(ctx, entity, req.Resource)
		if err != nil {
			return nil, err
		}
		if matched {
			return decide(true, "%s %s is authorized to %s %s", kind, req.EntityID, req.Action, req.Resource)
		}
	}

	return decide(false, "%s %s is not authorized for this resource", kind, req.EntityID)
}

// linkedSchemaMatches reports whether any of the entity's linked schemas
// has a type containing resource, ignoring case. Dangling links are skipped.
func (e *Evaluator) linkedSchemaMatches(ctx context.Context, entity *store.Entity, resource string) (bool, error) {
	want := strings.ToLower(resource)
	for _, id := range entity.CredentialTypes {
		schema, err := e.store.GetSchema(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to look up credential schema: %w", err)
		}
		if strings.Contains(strings.ToLower(schema.Type), want) {
			return true, nil
		}
	}
	return false, nil
}

// Recognize answers whether AuthorityID recognizes EntityID for Action and Resource.
//
// A matching recognition has the same action (case-sensitive), the same
// resource ignoring case, recognized set, and a window containing the
// evaluation time.
func (e *Evaluator) Recognize(ctx context.Context, req *Request) (_ *RecognitionResponse, err error) {
	ctx, probe := e.observer.QueryStarted(ctx, QueryRecognition, req)
	defer func() {
		if err != nil {
			probe.Failed(err)
		}
		probe.End()
	}()

	resp := &RecognitionResponse{}
	var at time.Time
	resp.echo, at, err = e.begin(req)
	if err != nil {
		return nil, err
	}

	decide := func(recognized bool, format string, args ...any) (*RecognitionResponse, error) {
		resp.Recognized = recognized
		resp.Message = fmt.Sprintf(format, args...)
		probe.Decided(recognized, resp.Message)
		return resp, nil
	}

	reg, err := e.authority(ctx, req.AuthorityID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return decide(false, "authority not found: %s", req.AuthorityID)
	}

	recognitions, err := e.store.ListRecognitions(ctx, reg.ID, req.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recognitions: %w", err)
	}
	if len(recognitions) == 0 {
		return decide(false, "no recognition of %s by %s", req.EntityID, req.AuthorityID)
	}

	for _, r := range recognitions {
		if r.Recognized &&
			r.Action == req.Action &&
			strings.EqualFold(r.Resource, req.Resource) &&
			r.Window().Contains(at) {
			return decide(true, "%s recognizes %s to %s %s", req.AuthorityID, req.EntityID, req.Action, req.Resource)
		}
	}
	return decide(false, "recognition of %s by %s does not cover %s %s at the requested time", req.EntityID, req.AuthorityID, req.Action, req.Resource)
}
