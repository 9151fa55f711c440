// Package gormstore implements store.Store on gorm with the sqlite driver.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alechenninger/trustreg/internal/store"
)

// Store is a store.Store backed by a gorm database
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open opens a sqlite database at dsn and migrates the store's tables.
// Use ":memory:" for a throwaway database.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite allows one writer, and each ":memory:" connection is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(db)
}

// New wraps an open gorm database and migrates the store's tables
func New(db *gorm.DB) (*Store, error) {
	err := db.AutoMigrate(
		&trustFrameworkModel{},
		&registryModel{},
		&schemaModel{},
		&entityModel{},
		&delegationModel{},
		&recognitionModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateTrustFramework(ctx context.Context, tf *store.TrustFramework) error {
	if tf.ID == "" {
		tf.ID = uuid.NewString()
	}
	m := trustFrameworkModel{
		ID:                     tf.ID,
		Name:                   tf.Name,
		Version:                tf.Version,
		GovernanceFrameworkURL: tf.GovernanceFrameworkURL,
	}
	return wrapErr(s.db.WithContext(ctx).Create(&m).Error, "trust framework %s", tf.ID)
}

func (s *Store) GetTrustFramework(ctx context.Context, id string) (*store.TrustFramework, error) {
	var m trustFrameworkModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, wrapErr(err, "trust framework %s", id)
	}
	return &store.TrustFramework{
		ID:                     m.ID,
		Name:                   m.Name,
		Version:                m.Version,
		GovernanceFrameworkURL: m.GovernanceFrameworkURL,
	}, nil
}

func (s *Store) CreateRegistry(ctx context.Context, r *store.Registry) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&registryModel{}).Where("id = ? OR ecosystem_did = ?", r.ID, r.EcosystemDID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("registry %s: %w", r.EcosystemDID, store.ErrConflict)
		}
		return wrapErr(tx.Create(fromRegistry(r)).Error, "registry %s", r.EcosystemDID)
	})
}

func (s *Store) GetRegistry(ctx context.Context, id string) (*store.Registry, error) {
	var m registryModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, wrapErr(err, "registry %s", id)
	}
	return m.toStore(), nil
}

func (s *Store) GetRegistryByDID(ctx context.Context, ecosystemDID string) (*store.Registry, error) {
	var m registryModel
	if err := s.db.WithContext(ctx).Where("ecosystem_did = ?", ecosystemDID).First(&m).Error; err != nil {
		return nil, wrapErr(err, "registry with ecosystem DID %s", ecosystemDID)
	}
	return m.toStore(), nil
}

func (s *Store) ListRegistries(ctx context.Context) ([]*store.Registry, error) {
	var models []registryModel
	if err := s.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*store.Registry, len(models))
	for i := range models {
		out[i] = models[i].toStore()
	}
	return out, nil
}

func (s *Store) CreateSchema(ctx context.Context, cs *store.CredentialSchema) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	m := schemaModel{ID: cs.ID, RegistryID: cs.RegistryID, Name: cs.Name, Type: cs.Type, Version: cs.Version}
	return wrapErr(s.db.WithContext(ctx).Create(&m).Error, "schema %s", cs.ID)
}

func (s *Store) GetSchema(ctx context.Context, id string) (*store.CredentialSchema, error) {
	var m schemaModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, wrapErr(err, "schema %s", id)
	}
	return m.toStore(), nil
}

func (s *Store) ListSchemas(ctx context.Context, registryID string) ([]*store.CredentialSchema, error) {
	q := s.db.WithContext(ctx).Order("id")
	if registryID != "" {
		q = q.Where("registry_id = ?", registryID)
	}
	var models []schemaModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*store.CredentialSchema, len(models))
	for i := range models {
		out[i] = models[i].toStore()
	}
	return out, nil
}

func (m *schemaModel) toStore() *store.CredentialSchema {
	return &store.CredentialSchema{ID: m.ID, RegistryID: m.RegistryID, Name: m.Name, Type: m.Type, Version: m.Version}
}

func (s *Store) CreateEntity(ctx context.Context, e *store.Entity) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entityModel{}).Where("kind = ? AND did = ?", string(e.Kind), e.DID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%s %s: %w", e.Kind, e.DID, store.ErrConflict)
		}
		return wrapErr(tx.Create(fromEntity(e)).Error, "%s %s", e.Kind, e.DID)
	})
}

func (s *Store) GetEntity(ctx context.Context, kind store.EntityKind, did string) (*store.Entity, error) {
	var m entityModel
	if err := s.db.WithContext(ctx).Where("kind = ? AND did = ?", string(kind), did).First(&m).Error; err != nil {
		return nil, wrapErr(err, "%s %s", kind, did)
	}
	return m.toStore(), nil
}

func (s *Store) UpdateEntity(ctx context.Context, e *store.Entity) error {
	res := s.db.WithContext(ctx).
		Model(&entityModel{}).
		Where("kind = ? AND did = ?", string(e.Kind), e.DID).
		Select("*").
		Omit("id").
		Updates(fromEntity(e))
	if res.Error != nil {
		return wrapErr(res.Error, "%s %s", e.Kind, e.DID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", e.Kind, e.DID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListEntities(ctx context.Context, kind store.EntityKind, registryID string) ([]*store.Entity, error) {
	q := s.db.WithContext(ctx).Where("kind = ?", string(kind)).Order("did")
	if registryID != "" {
		q = q.Where("registry_id = ?", registryID)
	}
	var models []entityModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*store.Entity, len(models))
	for i := range models {
		out[i] = models[i].toStore()
	}
	return out, nil
}

// CreateDelegation checks for an active pair and inserts in one transaction
func (s *Store) CreateDelegation(ctx context.Context, d *store.Delegation) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&delegationModel{}).
			Where("root_issuer_did = ? AND delegate_issuer_did = ? AND status = ?",
				d.RootIssuerDID, d.DelegateIssuerDID, string(store.DelegationActive)).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("active delegation %s -> %s: %w", d.RootIssuerDID, d.DelegateIssuerDID, store.ErrConflict)
		}
		return wrapErr(tx.Create(fromDelegation(d)).Error, "delegation %s", d.ID)
	})
}

func (s *Store) FindActiveDelegation(ctx context.Context, rootDID, delegateDID string) (*store.Delegation, error) {
	var m delegationModel
	err := s.db.WithContext(ctx).
		Where("root_issuer_did = ? AND delegate_issuer_did = ? AND status = ?", rootDID, delegateDID, string(store.DelegationActive)).
		First(&m).Error
	if err != nil {
		return nil, wrapErr(err, "active delegation %s -> %s", rootDID, delegateDID)
	}
	return m.toStore(), nil
}

func (s *Store) FindActiveDelegationByDelegate(ctx context.Context, delegateDID string) (*store.Delegation, error) {
	var m delegationModel
	err := s.db.WithContext(ctx).
		Where("delegate_issuer_did = ? AND status = ?", delegateDID, string(store.DelegationActive)).
		Order("created_at DESC").
		Order("rowid DESC").
		Take(&m).Error
	if err != nil {
		return nil, wrapErr(err, "active delegation to %s", delegateDID)
	}
	return m.toStore(), nil
}

func (s *Store) UpdateDelegation(ctx context.Context, d *store.Delegation) error {
	res := s.db.WithContext(ctx).
		Model(&delegationModel{}).
		Where("id = ?", d.ID).
		Select("*").
		Updates(fromDelegation(d))
	if res.Error != nil {
		return wrapErr(res.Error, "delegation %s", d.ID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delegation %s: %w", d.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListDelegations(ctx context.Context, filter store.DelegationFilter, page store.Page) ([]*store.Delegation, int, error) {
	page = page.Normalize()

	q := s.db.WithContext(ctx).Model(&delegationModel{})
	if filter.RootIssuerDID != "" {
		q = q.Where("root_issuer_did = ?", filter.RootIssuerDID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []delegationModel
	err := q.Order("created_at DESC").
		Order("rowid DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*store.Delegation, len(models))
	for i := range models {
		out[i] = models[i].toStore()
	}
	return out, int(total), nil
}

func (s *Store) CreateRecognition(ctx context.Context, r *store.Recognition) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return wrapErr(s.db.WithContext(ctx).Create(fromRecognition(r)).Error, "recognition %s", r.ID)
}

func (s *Store) ListRecognitions(ctx context.Context, registryID, entityDID string) ([]*store.Recognition, error) {
	var models []recognitionModel
	err := s.db.WithContext(ctx).
		Where("authority_registry_id = ? AND entity_did = ?", registryID, entityDID).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*store.Recognition, len(models))
	for i := range models {
		out[i] = models[i].toStore()
	}
	return out, nil
}

// wrapErr maps gorm errors onto the store sentinels
func wrapErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}
