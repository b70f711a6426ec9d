// Package notes manages per-video improvement notes. Notes are local data,
// never sent to the provider, and always scoped to their owner.
package notes

import (
	"context"
	"strings"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
	"github.com/google/uuid"
)

// MaxBodyLength bounds a single note.
const MaxBodyLength = 10_000

// Service is the note CRUD layer over the store.
type Service struct {
	store store.Store
}

// NewService creates a Service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Create adds a note for the user.
func (s *Service) Create(ctx context.Context, userID, videoID, body string) (*models.Note, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}
	if strings.TrimSpace(videoID) == "" {
		return nil, &errors.ErrMalformed{Reason: "video id must not be empty"}
	}

	now := time.Now().UTC()
	note := &models.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		VideoID:   videoID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Get returns one of the user's notes.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Note, error) {
	return s.store.GetNote(ctx, userID, id)
}

// List returns the user's notes, optionally filtered to one video.
func (s *Service) List(ctx context.Context, userID, videoID string) ([]*models.Note, error) {
	return s.store.ListNotes(ctx, userID, videoID)
}

// Update replaces a note's body. Ownership is enforced by the store lookup.
func (s *Service) Update(ctx context.Context, userID, id, body string) (*models.Note, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}

	note, err := s.store.GetNote(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	note.Body = body
	note.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Delete removes one of the user's notes.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteNote(ctx, userID, id)
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return &errors.ErrMalformed{Reason: "note body must not be empty"}
	}
	if len(body) > MaxBodyLength {
		return &errors.ErrMalformed{Reason: "note body too long"}
	}
	return nil
}
