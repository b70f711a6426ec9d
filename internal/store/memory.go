package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests and the doctor command.
// Thread-safe.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]*models.User       // key: user id
	bySubject   map[string]string             // subject id -> user id
	credentials map[string]*models.Credential // key: user id
	notes       map[string]*models.Note       // key: note id
	events      []*audit.Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*models.User),
		bySubject:   make(map[string]string),
		credentials: make(map[string]*models.Credential),
		notes:       make(map[string]*models.Note),
	}
}

// UpsertUser creates or refreshes a user keyed by subject id.
func (s *MemoryStore) UpsertUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := s.bySubject[user.SubjectID]; ok {
		existing := s.users[id]
		updated := *existing
		updated.Email = user.Email
		updated.Name = user.Name
		updated.AvatarURL = user.AvatarURL
		if user.ChannelID != "" {
			updated.ChannelID = user.ChannelID
		}
		updated.UpdatedAt = now
		s.users[id] = &updated
		out := updated
		return &out, nil
	}

	created := *user
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	s.users[created.ID] = &created
	s.bySubject[created.SubjectID] = created.ID
	out := created
	return &out, nil
}

// GetUser retrieves a user by internal id.
func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, &errors.ErrNotFound{Entity: "user", Key: id}
	}
	out := *u
	return &out, nil
}

// GetUserBySubject retrieves a user by provider subject id.
func (s *MemoryStore) GetUserBySubject(_ context.Context, subjectID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySubject[subjectID]
	if !ok {
		return nil, &errors.ErrNotFound{Entity: "user", Key: subjectID}
	}
	out := *s.users[id]
	return &out, nil
}

// SetUserChannelID caches the provider channel id for a user.
func (s *MemoryStore) SetUserChannelID(_ context.Context, id, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return &errors.ErrNotFound{Entity: "user", Key: id}
	}
	u.ChannelID = channelID
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// GetCredential retrieves the credential for a user.
func (s *MemoryStore) GetCredential(_ context.Context, userID string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[userID]
	if !ok {
		return nil, &errors.ErrNotFound{Entity: "credential", Key: userID}
	}
	out := *c
	return &out, nil
}

// UpsertCredential atomically creates or replaces the credential for a user.
func (s *MemoryStore) UpsertCredential(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *cred
	stored.UpdatedAt = time.Now().UTC()
	s.credentials[cred.UserID] = &stored
	return nil
}

// DeleteCredential removes the credential for a user.
func (s *MemoryStore) DeleteCredential(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.credentials, userID)
	return nil
}

// CreateNote inserts a new note.
func (s *MemoryStore) CreateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *note
	s.notes[note.ID] = &stored
	return nil
}

// GetNote retrieves a note owned by the given user.
func (s *MemoryStore) GetNote(_ context.Context, userID, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok || n.UserID != userID {
		return nil, &errors.ErrNotFound{Entity: "note", Key: id}
	}
	out := *n
	return &out, nil
}

// ListNotes lists a user's notes, optionally filtered by video id.
func (s *MemoryStore) ListNotes(_ context.Context, userID, videoID string) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var notes []*models.Note
	for _, n := range s.notes {
		if n.UserID != userID {
			continue
		}
		if videoID != "" && n.VideoID != videoID {
			continue
		}
		out := *n
		notes = append(notes, &out)
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

// UpdateNote updates the body of a note owned by the given user.
func (s *MemoryStore) UpdateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[note.ID]
	if !ok || n.UserID != note.UserID {
		return &errors.ErrNotFound{Entity: "note", Key: note.ID}
	}
	n.Body = note.Body
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteNote removes a note owned by the given user.
func (s *MemoryStore) DeleteNote(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.UserID != userID {
		return &errors.ErrNotFound{Entity: "note", Key: id}
	}
	delete(s.notes, id)
	return nil
}

// AppendAuditEvent appends an audit event.
func (s *MemoryStore) AppendAuditEvent(_ context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *event
	s.events = append(s.events, &stored)
	return nil
}

// ListAuditEvents returns the most recent events, optionally for one user.
func (s *MemoryStore) ListAuditEvents(_ context.Context, userID string, limit int) ([]*audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var events []*audit.Event
	for i := len(s.events) - 1; i >= 0 && len(events) < limit; i-- {
		e := s.events[i]
		if userID != "" && e.UserID != userID {
			continue
		}
		out := *e
		events = append(events, &out)
	}
	return events, nil
}

// PruneAuditEvents removes events older than the cutoff.
func (s *MemoryStore) PruneAuditEvents(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, e := range s.events {
		if e.Timestamp.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return deleted, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
