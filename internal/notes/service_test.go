package notes

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	note, err := svc.Create(context.Background(), "u1", "v1", "tighten the intro")
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.False(t, note.CreatedAt.IsZero())

	got, err := svc.Get(context.Background(), "u1", note.ID)
	require.NoError(t, err)
	assert.Equal(t, "tighten the intro", got.Body)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	_, err := svc.Create(context.Background(), "u1", "v1", "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMalformed, apperrors.KindOf(err))

	_, err = svc.Create(context.Background(), "u1", "", "body")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMalformed, apperrors.KindOf(err))

	_, err = svc.Create(context.Background(), "u1", "v1", strings.Repeat("x", MaxBodyLength+1))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMalformed, apperrors.KindOf(err))
}

func TestListFiltersByVideo(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", "v1", "note one")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", "v2", "note two")
	require.NoError(t, err)

	all, err := svc.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forVideo, err := svc.List(ctx, "u1", "v2")
	require.NoError(t, err)
	require.Len(t, forVideo, 1)
	assert.Equal(t, "note two", forVideo[0].Body)
}

func TestUpdate(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	note, err := svc.Create(ctx, "u1", "v1", "draft")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "u1", note.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Body)
	assert.False(t, updated.UpdatedAt.Before(note.UpdatedAt))
}

func TestOwnerScoping(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	note, err := svc.Create(ctx, "owner", "v1", "mine")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", note.ID)
	require.Error(t, err)

	_, err = svc.Update(ctx, "intruder", note.ID, "hijacked")
	require.Error(t, err)

	err = svc.Delete(ctx, "intruder", note.ID)
	require.Error(t, err)

	// Still intact for the owner.
	got, err := svc.Get(ctx, "owner", note.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Body)
}

func TestDelete(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	note, err := svc.Create(ctx, "u1", "v1", "gone soon")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "u1", note.ID))

	_, err = svc.Get(ctx, "u1", note.ID)
	require.Error(t, err)

	var notFound *apperrors.ErrNotFound
	assert.True(t, apperrors.As(err, &notFound))
}
