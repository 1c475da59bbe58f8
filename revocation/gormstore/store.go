// Package gormstore persists the revocation journal in a relational
// database, so a registry survives process restarts. The in-memory
// Registry stays the source of truth for reads; this store only appends
// and rehydrates.
package gormstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dnalock.io/dnalock/revocation"
)

// RevocationModel is the gorm model for one journaled revocation.
type RevocationModel struct {
	ID           string    `gorm:"type:char(36);primaryKey"`
	CredentialID string    `gorm:"type:varchar(128);not null;uniqueIndex:uk_credential_id"`
	RevokedAt    time.Time `gorm:"not null"`
	Reason       string    `gorm:"type:varchar(64);not null"`
	RevokedBy    string    `gorm:"type:varchar(128);not null"`
	Notes        string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
}

func (RevocationModel) TableName() string {
	return "revocations"
}

// BeforeCreate assigns a row id.
func (m *RevocationModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (m *RevocationModel) toDomain() revocation.Entry {
	return revocation.Entry{
		CredentialID: m.CredentialID,
		RevokedAt:    m.RevokedAt.UTC().Truncate(time.Second),
		Reason:       revocation.Reason(m.Reason),
		RevokedBy:    m.RevokedBy,
		Notes:        m.Notes,
	}
}

// Store appends to and rehydrates from the revocation journal.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) a sqlite-backed store at path. Use ":memory:"
// for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RevocationModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&RevocationModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Append journals one revocation entry.
func (s *Store) Append(ctx context.Context, e revocation.Entry) error {
	model := &RevocationModel{
		CredentialID: e.CredentialID,
		RevokedAt:    e.RevokedAt,
		Reason:       string(e.Reason),
		RevokedBy:    e.RevokedBy,
		Notes:        e.Notes,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to journal revocation",
			"operation", "append",
			"credential_id", e.CredentialID,
			"error", err,
		)
		return err
	}
	return nil
}

// LoadAll returns every journaled entry ordered by credential id.
func (s *Store) LoadAll(ctx context.Context) ([]revocation.Entry, error) {
	var models []RevocationModel
	err := s.db.WithContext(ctx).
		Order("credential_id ASC").
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to load revocation journal",
			"operation", "load_all",
			"error", err,
		)
		return nil, err
	}
	entries := make([]revocation.Entry, len(models))
	for i, m := range models {
		entries[i] = m.toDomain()
	}
	return entries, nil
}

// NewRegistry rehydrates an in-memory registry from the journal.
func (s *Store) NewRegistry(ctx context.Context) (*revocation.Registry, error) {
	entries, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	reg := revocation.NewRegistry()
	if err := reg.Restore(entries); err != nil {
		return nil, err
	}
	return reg, nil
}
