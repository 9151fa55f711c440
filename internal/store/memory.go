package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Store for tests and single-process use.
// Records are copied on the way in and out so callers never share state
// with the store.
type Memory struct {
	mu sync.RWMutex

	frameworks   map[string]*TrustFramework
	registries   map[string]*Registry
	schemas      map[string]*CredentialSchema
	entities     map[EntityKind]map[string]*Entity // kind -> DID -> entity
	delegations  map[string]*Delegation
	recognitions map[string]*Recognition

	// seq orders delegations created within the same clock tick
	seq      int
	delegSeq map[string]int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		frameworks: make(map[string]*TrustFramework),
		registries: make(map[string]*Registry),
		schemas:    make(map[string]*CredentialSchema),
		entities: map[EntityKind]map[string]*Entity{
			KindIssuer:   {},
			KindVerifier: {},
		},
		delegations:  make(map[string]*Delegation),
		recognitions: make(map[string]*Recognition),
		delegSeq:     make(map[string]int),
	}
}

func (m *Memory) CreateTrustFramework(ctx context.Context, tf *TrustFramework) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tf.ID == "" {
		tf.ID = uuid.NewString()
	}
	if _, ok := m.frameworks[tf.ID]; ok {
		return fmt.Errorf("trust framework %s: %w", tf.ID, ErrConflict)
	}
	c := *tf
	m.frameworks[tf.ID] = &c
	return nil
}

func (m *Memory) GetTrustFramework(ctx context.Context, id string) (*TrustFramework, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tf, ok := m.frameworks[id]
	if !ok {
		return nil, fmt.Errorf("trust framework %s: %w", id, ErrNotFound)
	}
	c := *tf
	return &c, nil
}

func (m *Memory) CreateRegistry(ctx context.Context, r *Registry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, ok := m.registries[r.ID]; ok {
		return fmt.Errorf("registry %s: %w", r.ID, ErrConflict)
	}
	for _, existing := range m.registries {
		if existing.EcosystemDID == r.EcosystemDID {
			return fmt.Errorf("registry with ecosystem DID %s: %w", r.EcosystemDID, ErrConflict)
		}
	}
	c := *r
	m.registries[r.ID] = &c
	return nil
}

func (m *Memory) GetRegistry(ctx context.Context, id string) (*Registry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.registries[id]
	if !ok {
		return nil, fmt.Errorf("registry %s: %w", id, ErrNotFound)
	}
	c := *r
	return &c, nil
}

func (m *Memory) GetRegistryByDID(ctx context.Context, ecosystemDID string) (*Registry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.registries {
		if r.EcosystemDID == ecosystemDID {
			c := *r
			return &c, nil
		}
	}
	return nil, fmt.Errorf("registry with ecosystem DID %s: %w", ecosystemDID, ErrNotFound)
}

func (m *Memory) ListRegistries(ctx context.Context) ([]*Registry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Registry, 0, len(m.registries))
	for _, r := range m.registries {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateSchema(ctx context.Context, s *CredentialSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, ok := m.schemas[s.ID]; ok {
		return fmt.Errorf("schema %s: %w", s.ID, ErrConflict)
	}
	c := *s
	m.schemas[s.ID] = &c
	return nil
}

func (m *Memory) GetSchema(ctx context.Context, id string) (*CredentialSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schemas[id]
	if !ok {
		return nil, fmt.Errorf("schema %s: %w", id, ErrNotFound)
	}
	c := *s
	return &c, nil
}

func (m *Memory) ListSchemas(ctx context.Context, registryID string) ([]*CredentialSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*CredentialSchema
	for _, s := range m.schemas {
		if registryID == "" || s.RegistryID == registryID {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateEntity(ctx context.Context, e *Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDID, ok := m.entities[e.Kind]
	if !ok {
		return fmt.Errorf("unknown entity kind %q", e.Kind)
	}
	if _, exists := byDID[e.DID]; exists {
		return fmt.Errorf("%s %s: %w", e.Kind, e.DID, ErrConflict)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	byDID[e.DID] = copyEntity(e)
	return nil
}

func (m *Memory) GetEntity(ctx context.Context, kind EntityKind, did string) (*Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[kind][did]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, did, ErrNotFound)
	}
	return copyEntity(e), nil
}

func (m *Memory) UpdateEntity(ctx context.Context, e *Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entities[e.Kind][e.DID]; !ok {
		return fmt.Errorf("%s %s: %w", e.Kind, e.DID, ErrNotFound)
	}
	m.entities[e.Kind][e.DID] = copyEntity(e)
	return nil
}

func (m *Memory) ListEntities(ctx context.Context, kind EntityKind, registryID string) ([]*Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entity
	for _, e := range m.entities[kind] {
		if registryID == "" || e.RegistryID == registryID {
			out = append(out, copyEntity(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DID < out[j].DID })
	return out, nil
}

func (m *Memory) CreateDelegation(ctx context.Context, d *Delegation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.delegations {
		if existing.Status == DelegationActive &&
			existing.RootIssuerDID == d.RootIssuerDID &&
			existing.DelegateIssuerDID == d.DelegateIssuerDID {
			return fmt.Errorf("active delegation %s -> %s: %w", d.RootIssuerDID, d.DelegateIssuerDID, ErrConflict)
		}
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, ok := m.delegations[d.ID]; ok {
		return fmt.Errorf("delegation %s: %w", d.ID, ErrConflict)
	}
	m.seq++
	m.delegSeq[d.ID] = m.seq
	m.delegations[d.ID] = copyDelegation(d)
	return nil
}

func (m *Memory) FindActiveDelegation(ctx context.Context, rootDID, delegateDID string) (*Delegation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.delegations {
		if d.Status == DelegationActive && d.RootIssuerDID == rootDID && d.DelegateIssuerDID == delegateDID {
			return copyDelegation(d), nil
		}
	}
	return nil, fmt.Errorf("active delegation %s -> %s: %w", rootDID, delegateDID, ErrNotFound)
}

func (m *Memory) FindActiveDelegationByDelegate(ctx context.Context, delegateDID string) (*Delegation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var newest *Delegation
	for _, d := range m.delegations {
		if d.Status != DelegationActive || d.DelegateIssuerDID != delegateDID {
			continue
		}
		if newest == nil || m.newer(d, newest) {
			newest = d
		}
	}
	if newest == nil {
		return nil, fmt.Errorf("active delegation to %s: %w", delegateDID, ErrNotFound)
	}
	return copyDelegation(newest), nil
}

func (m *Memory) UpdateDelegation(ctx context.Context, d *Delegation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.delegations[d.ID]; !ok {
		return fmt.Errorf("delegation %s: %w", d.ID, ErrNotFound)
	}
	m.delegations[d.ID] = copyDelegation(d)
	return nil
}

func (m *Memory) ListDelegations(ctx context.Context, filter DelegationFilter, page Page) ([]*Delegation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Delegation
	for _, d := range m.delegations {
		if filter.RootIssuerDID != "" && d.RootIssuerDID != filter.RootIssuerDID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool { return m.newer(matched[i], matched[j]) })

	page = page.Normalize()
	total := len(matched)
	if page.Offset >= total {
		return []*Delegation{}, total, nil
	}
	end := min(page.Offset+page.Limit, total)

	out := make([]*Delegation, 0, end-page.Offset)
	for _, d := range matched[page.Offset:end] {
		out = append(out, copyDelegation(d))
	}
	return out, total, nil
}

// newer orders by CreatedAt, then insertion order
func (m *Memory) newer(a, b *Delegation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return m.delegSeq[a.ID] > m.delegSeq[b.ID]
}

func (m *Memory) CreateRecognition(ctx context.Context, r *Recognition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, ok := m.recognitions[r.ID]; ok {
		return fmt.Errorf("recognition %s: %w", r.ID, ErrConflict)
	}
	c := *r
	c.ValidFrom = copyTime(r.ValidFrom)
	c.ValidUntil = copyTime(r.ValidUntil)
	m.recognitions[r.ID] = &c
	return nil
}

func (m *Memory) ListRecognitions(ctx context.Context, registryID, entityDID string) ([]*Recognition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Recognition
	for _, r := range m.recognitions {
		if r.AuthorityRegistryID != registryID || r.EntityDID != entityDID {
			continue
		}
		c := *r
		c.ValidFrom = copyTime(r.ValidFrom)
		c.ValidUntil = copyTime(r.ValidUntil)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyEntity(e *Entity) *Entity {
	c := *e
	c.ValidFrom = copyTime(e.ValidFrom)
	c.ValidUntil = copyTime(e.ValidUntil)
	c.Jurisdictions = slices.Clone(e.Jurisdictions)
	c.Contexts = slices.Clone(e.Contexts)
	c.CredentialTypes = slices.Clone(e.CredentialTypes)
	c.Accreditation = maps.Clone(e.Accreditation)
	return &c
}

func copyDelegation(d *Delegation) *Delegation {
	c := *d
	c.ValidUntil = copyTime(d.ValidUntil)
	c.RevokedAt = copyTime(d.RevokedAt)
	c.Scope = DelegationScope{
		Jurisdictions:   slices.Clone(d.Scope.Jurisdictions),
		CredentialTypes: slices.Clone(d.Scope.CredentialTypes),
		Contexts:        slices.Clone(d.Scope.Contexts),
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
