package trqp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alechenninger/trustreg/internal/clock"
	"github.com/alechenninger/trustreg/internal/store"
)

const (
	authorityDID  = "did:web:education-trust.org"
	universityDID = "did:web:university.edu"
	employerDID   = "did:web:employer.example"
)

var now = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// newEvaluator seeds the university example: an education registry with an
// active issuer linked to a UniversityDegree schema, valid for 2025.
func newEvaluator(t *testing.T) (*Evaluator, *store.Memory, *store.Registry) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	reg := &store.Registry{EcosystemDID: authorityDID, Name: "Education Trust", Status: store.RegistryActive}
	require.NoError(t, st.CreateRegistry(ctx, reg))

	degree := &store.CredentialSchema{RegistryID: reg.ID, Name: "Degree", Type: "UniversityDegreeCredential"}
	require.NoError(t, st.CreateSchema(ctx, degree))
	transcript := &store.CredentialSchema{RegistryID: reg.ID, Name: "Transcript", Type: "Transcript"}
	require.NoError(t, st.CreateSchema(ctx, transcript))

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	require.NoError(t, st.CreateEntity(ctx, &store.Entity{
		Kind:            store.KindIssuer,
		DID:             universityDID,
		Name:            "State University",
		RegistryID:      reg.ID,
		Status:          store.EntityActive,
		ValidFrom:       &from,
		ValidUntil:      &until,
		CredentialTypes: []string{degree.ID, "dangling-schema-id"},
	}))
	require.NoError(t, st.CreateEntity(ctx, &store.Entity{
		Kind:            store.KindVerifier,
		DID:             employerDID,
		Name:            "Employer",
		RegistryID:      reg.ID,
		Status:          store.EntityActive,
		CredentialTypes: []string{degree.ID, transcript.ID},
	}))

	ev, err := NewEvaluator(Config{Store: st, Clock: clock.NewFixtureClock(now)})
	require.NoError(t, err)
	return ev, st, reg
}

func TestNewEvaluator_RequiresStore(t *testing.T) {
	_, err := NewEvaluator(Config{})
	assert.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	ev, st, _ := newEvaluator(t)

	other := &store.Registry{EcosystemDID: "did:web:health-trust.org", Name: "Health", Status: store.RegistryActive}
	require.NoError(t, st.CreateRegistry(ctx, other))

	tests := []struct {
		name        string
		req         Request
		want        bool
		wantMessage string
	}{
		{
			name: "university issues degrees",
			req:  Request{EntityID: universityDID, AuthorityID: authorityDID, Action: "issue", Resource: "UniversityDegree"},
			want: true,
		},
		{
			name: "resource matches case-insensitive substring",
			req:  Request{EntityID: universityDID, AuthorityID: authorityDID, Action: "issue", Resource: "universitydegree"},
			want: true,
		},
		{
			name:        "wrong resource is a scope mismatch",
			req:         Request{EntityID: universityDID, AuthorityID: authorityDID, Action: "issue", Resource: "MedicalLicense"},
			wantMessage: "not authorized for this resource",
		},
		{
			name: "verifier verifies",
			req:  Request{EntityID: employerDID, AuthorityID: authorityDID, Action: "verify", Resource: "Transcript"},
			want: true,
		},
		{
			name:        "verifier cannot issue",
			req:         Request{EntityID: employerDID, AuthorityID: authorityDID, Action: "issue", Resource: "Transcript"},
			wantMessage: "entity not found",
		},
		{
			name:        "unknown authority",
			req:         Request{EntityID: universityDID, AuthorityID: "did:web:nobody.example", Action: "issue", Resource: "UniversityDegree"},
			wantMessage: "authority not found",
		},
		{
			name:        "unknown action",
			req:         Request{EntityID: universityDID, AuthorityID: authorityDID, Action: "revoke", Resource: "UniversityDegree"},
			wantMessage: "unknown action",
		},
		{
			name:        "actions are case-sensitive",
			req:         Request{EntityID: universityDID, AuthorityID: authorityDID, Action: "Issue", Resource: "UniversityDegree"},
			wantMessage: "unknown action",
		},
		{
			name:        "unknown entity",
			req:         Request{EntityID: "did:web:diploma-mill.example", AuthorityID: authorityDID, Action: "issue", Resource: "UniversityDegree"},
			wantMessage: "entity not found",
		},
		{
			name:        "entity in another registry",
			req:         Request{EntityID: universityDID, AuthorityID: "did:web:health-trust.org", Action: "issue", Resource: "UniversityDegree"},
			wantMessage: "entity not found",
		},
		{
			name:        "outside validity window",
			req:         Request{EntityID: universityDID, AuthorityID: authorityDID, Action: "issue", Resource: "UniversityDegree", Context: &RequestContext{Time: ptr("2026-01-01T00:00:00Z")}},
			wantMessage: "not authorized for this resource",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ev.Authorize(ctx, &tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Authorized, resp.Message)
			if tt.wantMessage != "" {
				assert.Contains(t, resp.Message, tt.wantMessage)
			}

			assert.Equal(t, tt.req.EntityID, resp.EntityID)
			assert.Equal(t, tt.req.AuthorityID, resp.AuthorityID)
			assert.Equal(t, tt.req.Action, resp.Action)
			assert.Equal(t, tt.req.Resource, resp.Resource)
			assert.Equal(t, "2025-06-01T09:30:00Z", resp.TimeEvaluated)
		})
	}
}

func TestAuthorize_ValidityBoundsInclusive(t *testing.T) {
	ctx := context.Background()
	ev, _, _ := newEvaluator(t)

	tests := []struct {
		at   string
		want bool
	}{
		{"2024-12-31T23:59:59Z", false},
		{"2025-01-01T00:00:00Z", true},
		{"2025-12-31T23:59:59Z", true},
		{"2026-01-01T00:00:00Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			resp, err := ev.Authorize(ctx, &Request{
				EntityID:    universityDID,
				AuthorityID: authorityDID,
				Action:      ActionIssue,
				Resource:    "UniversityDegree",
				Context:     &RequestContext{Time: ptr(tt.at)},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Authorized)
			require.NotNil(t, resp.TimeRequested)
			assert.Equal(t, tt.at, *resp.TimeRequested)
		})
	}
}

func TestAuthorize_InactiveEntity(t *testing.T) {
	ctx := context.Background()
	ev, st, _ := newEvaluator(t)

	for _, status := range []store.EntityStatus{store.EntityPending, store.EntitySuspended, store.EntityRevoked} {
		t.Run(string(status), func(t *testing.T) {
			e, err := st.GetEntity(ctx, store.KindIssuer, universityDID)
			require.NoError(t, err)
			e.Status = status
			require.NoError(t, st.UpdateEntity(ctx, e))

			resp, err := ev.Authorize(ctx, &Request{EntityID: universityDID, AuthorityID: authorityDID, Action: ActionIssue, Resource: "UniversityDegree"})
			require.NoError(t, err)
			assert.False(t, resp.Authorized)
			assert.Contains(t, resp.Message, "not authorized for this resource")
		})
	}
}

func TestAuthorize_InvalidTime(t *testing.T) {
	ev, _, _ := newEvaluator(t)

	_, err := ev.Authorize(context.Background(), &Request{
		EntityID:    universityDID,
		AuthorityID: authorityDID,
		Action:      ActionIssue,
		Resource:    "UniversityDegree",
		Context:     &RequestContext{Time: ptr("next tuesday")},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "context.time", verr.Field)
}

func TestRecognize(t *testing.T) {
	ctx := context.Background()
	ev, st, reg := newEvaluator(t)

	const peerDID = "did:web:eu-education.example"
	expired := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateRecognition(ctx, &store.Recognition{
		AuthorityRegistryID: reg.ID, EntityDID: peerDID, Action: "recognize", Resource: "UniversityDegree", Recognized: true,
	}))
	require.NoError(t, st.CreateRecognition(ctx, &store.Recognition{
		AuthorityRegistryID: reg.ID, EntityDID: peerDID, Action: "recognize", Resource: "Transcript", Recognized: true, ValidUntil: &expired,
	}))
	require.NoError(t, st.CreateRecognition(ctx, &store.Recognition{
		AuthorityRegistryID: reg.ID, EntityDID: peerDID, Action: "recognize", Resource: "Diploma", Recognized: false,
	}))

	tests := []struct {
		name        string
		req         Request
		want        bool
		wantMessage string
	}{
		{
			name: "recognized",
			req:  Request{EntityID: peerDID, AuthorityID: authorityDID, Action: "recognize", Resource: "UniversityDegree"},
			want: true,
		},
		{
			name: "resource ignores case",
			req:  Request{EntityID: peerDID, AuthorityID: authorityDID, Action: "recognize", Resource: "universitydegree"},
			want: true,
		},
		{
			name:        "resource is not a substring match",
			req:         Request{EntityID: peerDID, AuthorityID: authorityDID, Action: "recognize", Resource: "University"},
			wantMessage: "does not cover",
		},
		{
			name:        "action is case-sensitive",
			req:         Request{EntityID: peerDID, AuthorityID: authorityDID, Action: "Recognize", Resource: "UniversityDegree"},
			wantMessage: "does not cover",
		},
		{
			name:        "expired recognition",
			req:         Request{EntityID: peerDID, AuthorityID: authorityDID, Action: "recognize", Resource: "Transcript"},
			wantMessage: "does not cover",
		},
		{
			name: "recognition before expiry",
			req:  Request{EntityID: peerDID, AuthorityID: authorityDID, Action: "recognize", Resource: "Transcript", Context: &RequestContext{Time: ptr("2024-06-01T00:00:00Z")}},
			want: true,
		},
		{
			name:        "recognized flag false",
			req:         Request{EntityID: peerDID, AuthorityID: authorityDID, Action: "recognize", Resource: "Diploma"},
			wantMessage: "does not cover",
		},
		{
			name:        "no recognition edge",
			req:         Request{EntityID: "did:web:stranger.example", AuthorityID: authorityDID, Action: "recognize", Resource: "UniversityDegree"},
			wantMessage: "no recognition",
		},
		{
			name:        "unknown authority",
			req:         Request{EntityID: peerDID, AuthorityID: "did:web:nobody.example", Action: "recognize", Resource: "UniversityDegree"},
			wantMessage: "authority not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ev.Recognize(ctx, &tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Recognized, resp.Message)
			if tt.wantMessage != "" {
				assert.Contains(t, resp.Message, tt.wantMessage)
			}
			assert.Equal(t, tt.req.EntityID, resp.EntityID)
			assert.Equal(t, "2025-06-01T09:30:00Z", resp.TimeEvaluated)
		})
	}
}

func TestResponse_JSON(t *testing.T) {
	ev, _, _ := newEvaluator(t)

	resp, err := ev.Authorize(context.Background(), &Request{
		EntityID:    universityDID,
		AuthorityID: authorityDID,
		Action:      ActionIssue,
		Resource:    "UniversityDegree",
		Context:     &RequestContext{Time: ptr("2025-03-01T00:00:00Z")},
	})
	require.NoError(t, err)

	out, err := json.Marshal(resp)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Equal(t, universityDID, fields["entity_id"])
	assert.Equal(t, authorityDID, fields["authority_id"])
	assert.Equal(t, "issue", fields["action"])
	assert.Equal(t, "UniversityDegree", fields["resource"])
	assert.Equal(t, true, fields["authorized"])
	assert.Equal(t, "2025-06-01T09:30:00Z", fields["time_evaluated"])
	assert.Equal(t, "2025-03-01T00:00:00Z", fields["time_requested"])
	assert.NotEmpty(t, fields["message"])

	t.Run("request decodes from TRQP shape", func(t *testing.T) {
		var req Request
		require.NoError(t, json.Unmarshal([]byte(`{
			"entity_id": "did:web:university.edu",
			"authority_id": "did:web:education-trust.org",
			"action": "issue",
			"resource": "UniversityDegree",
			"context": {"time": "2025-03-01T00:00:00Z"}
		}`), &req))
		assert.Equal(t, universityDID, req.EntityID)
		require.NotNil(t, req.Context)
		assert.Equal(t, "2025-03-01T00:00:00Z", *req.Context.Time)
	})
}

type recordingQueryObserver struct {
	events []string
}

func (o *recordingQueryObserver) QueryStarted(ctx context.Context, query QueryType, req *Request) (context.Context, QueryProbe) {
	o.events = append(o.events, "Started:"+string(query))
	return ctx, o
}

func (o *recordingQueryObserver) Decided(allowed bool, message string) {
	if allowed {
		o.events = append(o.events, "Allowed")
	} else {
		o.events = append(o.events, "Denied")
	}
}
func (o *recordingQueryObserver) Failed(err error) { o.events = append(o.events, "Failed") }
func (o *recordingQueryObserver) End() { o.events = append(o.events, "End") }

func TestQueryObserver(t *testing.T) {
	ctx := context.Background()
	_, st, _ := newEvaluator(t)
	obs := &recordingQueryObserver{}
	ev, err := NewEvaluator(Config{Store: st, Clock: clock.NewFixtureClock(now), Observer: obs})
	require.NoError(t, err)

	_, err = ev.Authorize(ctx, &Request{EntityID: universityDID, AuthorityID: authorityDID, Action: ActionIssue, Resource: "UniversityDegree"})
	require.NoError(t, err)
	_, err = ev.Recognize(ctx, &Request{EntityID: universityDID, AuthorityID: authorityDID, Action: "recognize", Resource: "x"})
	require.NoError(t, err)
	_, err = ev.Authorize(ctx, &Request{Context: &RequestContext{Time: ptr("bad")}})
	require.Error(t, err)

	assert.Equal(t, []string{
		"Started:authorization", "Allowed", "End",
		"Started:recognition", "Denied", "End",
		"Started:authorization", "Failed", "End",
	}, obs.events)
}
