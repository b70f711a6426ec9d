// Package store persists users, provider credentials, notes and audit events.
package store

import (
	"context"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
)

// Store is the persistence interface consumed by the services. Both the
// SQLite and in-memory implementations satisfy it.
type Store interface {
	// User operations. UpsertUser is keyed by the provider subject id: the
	// first authorization creates the record, later ones refresh profile
	// fields while the internal id stays stable.
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserBySubject(ctx context.Context, subjectID string) (*models.User, error)
	SetUserChannelID(ctx context.Context, id, channelID string) error

	// Credential operations. UpsertCredential is an atomic single-row
	// create-or-update keyed by user id.
	GetCredential(ctx context.Context, userID string) (*models.Credential, error)
	UpsertCredential(ctx context.Context, cred *models.Credential) error
	DeleteCredential(ctx context.Context, userID string) error

	// Note operations, owner-scoped.
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, userID, id string) (*models.Note, error)
	ListNotes(ctx context.Context, userID, videoID string) ([]*models.Note, error)
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, userID, id string) error

	// Audit sink. Append-only; rows are never mutated, only pruned by age.
	AppendAuditEvent(ctx context.Context, event *audit.Event) error
	ListAuditEvents(ctx context.Context, userID string, limit int) ([]*audit.Event, error)
	PruneAuditEvents(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
