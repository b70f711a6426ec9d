package refresh

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/crypto"
	apperrors "github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/oauth"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exchangerFunc func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error)

func (f exchangerFunc) Refresh(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
	return f(ctx, refreshSecret)
}

func testCodec(t *testing.T) *crypto.Codec {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	codec, err := crypto.NewCodec(key)
	require.NoError(t, err)
	return codec
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.WithOutput(io.Discard))
}

func seedCredential(t *testing.T, s store.Store, codec *crypto.Codec, userID, access, refresh string, expiresAt time.Time) {
	t.Helper()
	accessSealed, err := codec.Seal(access)
	require.NoError(t, err)
	refreshSealed := ""
	if refresh != "" {
		refreshSealed, err = codec.Seal(refresh)
		require.NoError(t, err)
	}
	require.NoError(t, s.UpsertCredential(context.Background(), &models.Credential{
		UserID:          userID,
		AccessSealed:    accessSealed,
		RefreshSealed:   refreshSealed,
		AccessExpiresAt: expiresAt,
		Scope:           "youtube.readonly",
	}))
}

func TestAccessSecretFreshPathSkipsExchange(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)
	var calls atomic.Int64
	exchanger := exchangerFunc(func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
		calls.Add(1)
		return &oauth.TokenResponse{AccessToken: "never", ExpiresIn: 3600}, nil
	})

	seedCredential(t, s, codec, "u1", "fresh-access", "refresh-secret", time.Now().Add(time.Hour))
	m := NewManager(s, codec, exchanger, testLogger())

	secret, err := m.AccessSecret(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", secret)
	assert.Equal(t, int64(0), calls.Load())
}

func TestAccessSecretRefreshesStaleCredential(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)
	exchanger := exchangerFunc(func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
		assert.Equal(t, "refresh-secret", refreshSecret)
		return &oauth.TokenResponse{AccessToken: "renewed-access", ExpiresIn: 3600}, nil
	})

	seedCredential(t, s, codec, "u1", "stale-access", "refresh-secret", time.Now().Add(time.Minute))
	m := NewManager(s, codec, exchanger, testLogger())

	secret, err := m.AccessSecret(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "renewed-access", secret)

	// The stored credential was updated and the refresh secret survived.
	cred, err := s.GetCredential(context.Background(), "u1")
	require.NoError(t, err)
	access, err := codec.Open(cred.AccessSealed)
	require.NoError(t, err)
	assert.Equal(t, "renewed-access", access)
	kept, err := codec.Open(cred.RefreshSealed)
	require.NoError(t, err)
	assert.Equal(t, "refresh-secret", kept)
	assert.Greater(t, cred.Remaining(time.Now()), 50*time.Minute)
}

func TestAccessSecretRotatesRefreshSecretWhenOffered(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)
	exchanger := exchangerFunc(func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
		return &oauth.TokenResponse{AccessToken: "renewed", RefreshToken: "rotated", ExpiresIn: 3600}, nil
	})

	seedCredential(t, s, codec, "u1", "stale", "old-refresh", time.Now().Add(-time.Minute))
	m := NewManager(s, codec, exchanger, testLogger())

	_, err := m.AccessSecret(context.Background(), "u1")
	require.NoError(t, err)

	cred, err := s.GetCredential(context.Background(), "u1")
	require.NoError(t, err)
	rotated, err := codec.Open(cred.RefreshSealed)
	require.NoError(t, err)
	assert.Equal(t, "rotated", rotated)
}

func TestAccessSecretCoalescesConcurrentRefreshes(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)

	var calls atomic.Int64
	release := make(chan struct{})
	exchanger := exchangerFunc(func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
		calls.Add(1)
		<-release
		return &oauth.TokenResponse{AccessToken: "coalesced", ExpiresIn: 3600}, nil
	})

	seedCredential(t, s, codec, "u1", "stale", "refresh-secret", time.Now().Add(-time.Minute))
	m := NewManager(s, codec, exchanger, testLogger())

	const waiters = 16
	var wg sync.WaitGroup
	results := make([]string, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.AccessSecret(context.Background(), "u1")
		}(i)
	}
	// Let the goroutines pile up behind the single in-flight exchange.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "coalesced", results[i])
	}
}

func TestAccessSecretMissingCredential(t *testing.T) {
	s := store.NewMemoryStore()
	m := NewManager(s, testCodec(t), nil, testLogger())

	_, err := m.AccessSecret(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotAuthorized, apperrors.KindOf(err))
}

func TestAccessSecretWithoutRefreshSecret(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)
	var calls atomic.Int64
	exchanger := exchangerFunc(func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
		calls.Add(1)
		return nil, nil
	})

	seedCredential(t, s, codec, "u1", "stale", "", time.Now().Add(-time.Minute))
	m := NewManager(s, codec, exchanger, testLogger())

	_, err := m.AccessSecret(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindReauthorizationRequired, apperrors.KindOf(err))
	assert.Equal(t, int64(0), calls.Load())

	// The dead credential stays on record untouched.
	cred, err := s.GetCredential(context.Background(), "u1")
	require.NoError(t, err)
	stale, err := codec.Open(cred.AccessSealed)
	require.NoError(t, err)
	assert.Equal(t, "stale", stale)
}

func TestAccessSecretPermanentProviderRejection(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)
	exchanger := exchangerFunc(func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
		return nil, &oauth.TokenError{StatusCode: 400, Code: "invalid_grant"}
	})

	seedCredential(t, s, codec, "u1", "stale", "revoked-refresh", time.Now().Add(-time.Minute))
	m := NewManager(s, codec, exchanger, testLogger())

	_, err := m.AccessSecret(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindReauthorizationRequired, apperrors.KindOf(err))

	// Failure never mutates the store.
	cred, err := s.GetCredential(context.Background(), "u1")
	require.NoError(t, err)
	kept, err := codec.Open(cred.RefreshSealed)
	require.NoError(t, err)
	assert.Equal(t, "revoked-refresh", kept)
}

func TestAccessSecretTransientProviderFailure(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)
	exchanger := exchangerFunc(func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
		return nil, &oauth.TokenError{StatusCode: 503, Code: "temporarily_unavailable"}
	})

	seedCredential(t, s, codec, "u1", "stale", "refresh-secret", time.Now().Add(-time.Minute))
	m := NewManager(s, codec, exchanger, testLogger())

	_, err := m.AccessSecret(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUpstreamError, apperrors.KindOf(err))
}

func TestAccessSecretSurvivesCallerCancellation(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)
	exchanger := exchangerFunc(func(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error) {
		// The exchange context must be detached from the caller's.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return &oauth.TokenResponse{AccessToken: "detached", ExpiresIn: 3600}, nil
		}
	})

	seedCredential(t, s, codec, "u1", "stale", "refresh-secret", time.Now().Add(-time.Minute))
	m := NewManager(s, codec, exchanger, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	secret, err := m.AccessSecret(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "detached", secret)
}

func TestInvalidateRemovesCredential(t *testing.T) {
	s := store.NewMemoryStore()
	codec := testCodec(t)
	seedCredential(t, s, codec, "u1", "a", "r", time.Now().Add(time.Hour))

	m := NewManager(s, codec, nil, testLogger())
	require.NoError(t, m.Invalidate(context.Background(), "u1"))

	_, err := m.AccessSecret(context.Background(), "u1")
	assert.Equal(t, apperrors.KindNotAuthorized, apperrors.KindOf(err))
}
