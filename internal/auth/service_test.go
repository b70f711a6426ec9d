package auth

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/crypto"
	apperrors "github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/oauth"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/session"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/youtube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	exchangeResp *oauth.TokenResponse
	exchangeErr  error
	profile      *oauth.UserProfile
	profileErr   error
	revoked      []string
	revokeErr    error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/consent?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*oauth.TokenResponse, error) {
	return f.exchangeResp, f.exchangeErr
}

func (f *fakeProvider) FetchProfile(ctx context.Context, accessSecret string) (*oauth.UserProfile, error) {
	return f.profile, f.profileErr
}

func (f *fakeProvider) Revoke(ctx context.Context, secret string) error {
	f.revoked = append(f.revoked, secret)
	return f.revokeErr
}

type fakeChannels struct {
	channel *youtube.Channel
	err     error
}

func (f *fakeChannels) ChannelFor(ctx context.Context, accessSecret string) (*youtube.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	// Mirror the real client's contract: an account with no channel is an
	// ErrResourceNotFound, never (nil, nil).
	if f.channel == nil {
		return nil, &apperrors.ErrResourceNotFound{Operation: "channels.list", Resource: "channel"}
	}
	return f.channel, nil
}

func newTestService(t *testing.T, provider *fakeProvider, channels *fakeChannels) (*Service, store.Store, *crypto.Codec) {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	codec, err := crypto.NewCodec(key)
	require.NoError(t, err)
	sessions, err := session.NewIssuer([]byte("test-session-secret"))
	require.NoError(t, err)
	s := store.NewMemoryStore()
	log := logging.NewLogger(logging.WithOutput(io.Discard))
	return NewService(provider, channels, s, codec, sessions, nil, log), s, codec
}

func happyProvider() *fakeProvider {
	return &fakeProvider{
		exchangeResp: &oauth.TokenResponse{
			AccessToken:  "access-secret",
			RefreshToken: "refresh-secret",
			ExpiresIn:    3600,
			Scope:        "youtube.readonly",
		},
		profile: &oauth.UserProfile{
			Sub:     "sub-42",
			Email:   "owner@example.com",
			Name:    "Owner",
			Picture: "https://img.example/owner.png",
		},
	}
}

func TestBeginAuthorizationFreshStatePerCall(t *testing.T) {
	svc, _, _ := newTestService(t, happyProvider(), &fakeChannels{})

	url1, state1 := svc.BeginAuthorization()
	url2, state2 := svc.BeginAuthorization()

	assert.NotEqual(t, state1, state2)
	assert.Contains(t, url1, state1)
	assert.Contains(t, url2, state2)
}

func TestCompleteAuthorization(t *testing.T) {
	channels := &fakeChannels{channel: &youtube.Channel{ID: "UC123", Title: "My Channel"}}
	svc, s, codec := newTestService(t, happyProvider(), channels)

	result, err := svc.CompleteAuthorization(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", result.User.Email)
	assert.Equal(t, "UC123", result.User.ChannelID)
	assert.NotEmpty(t, result.SessionToken)

	// The credential was persisted sealed, not in plaintext.
	cred, err := s.GetCredential(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.NotContains(t, cred.AccessSealed, "access-secret")
	access, err := codec.Open(cred.AccessSealed)
	require.NoError(t, err)
	assert.Equal(t, "access-secret", access)
	refresh, err := codec.Open(cred.RefreshSealed)
	require.NoError(t, err)
	assert.Equal(t, "refresh-secret", refresh)
	assert.Greater(t, cred.Remaining(time.Now()), 50*time.Minute)
}

func TestCompleteAuthorizationRepeatLoginKeepsUserID(t *testing.T) {
	svc, _, _ := newTestService(t, happyProvider(), &fakeChannels{})

	first, err := svc.CompleteAuthorization(context.Background(), "code-1")
	require.NoError(t, err)
	second, err := svc.CompleteAuthorization(context.Background(), "code-2")
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestCompleteAuthorizationExchangeFailure(t *testing.T) {
	provider := happyProvider()
	provider.exchangeResp = nil
	provider.exchangeErr = &oauth.TokenError{StatusCode: 400, Code: "invalid_grant"}
	svc, s, _ := newTestService(t, provider, &fakeChannels{})

	_, err := svc.CompleteAuthorization(context.Background(), "bad-code")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAuthorizationFailed, apperrors.KindOf(err))

	// Nothing was persisted.
	_, err = s.GetUserBySubject(context.Background(), "sub-42")
	require.Error(t, err)
}

func TestCompleteAuthorizationIdentityFailure(t *testing.T) {
	provider := happyProvider()
	provider.profile = nil
	provider.profileErr = fmt.Errorf("userinfo unavailable")
	svc, _, _ := newTestService(t, provider, &fakeChannels{})

	_, err := svc.CompleteAuthorization(context.Background(), "code")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAuthorizationFailed, apperrors.KindOf(err))
}

func TestCompleteAuthorizationChannelLookupFailureIsNonFatal(t *testing.T) {
	channels := &fakeChannels{err: fmt.Errorf("channels api down")}
	svc, _, _ := newTestService(t, happyProvider(), channels)

	result, err := svc.CompleteAuthorization(context.Background(), "code")
	require.NoError(t, err)
	assert.Empty(t, result.User.ChannelID)
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t, happyProvider(), &fakeChannels{})

	result, err := svc.CompleteAuthorization(context.Background(), "code")
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, user.ID)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t, happyProvider(), &fakeChannels{})

	_, err := svc.Authenticate(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMalformed, apperrors.KindOf(err))
}

func TestAuthenticateRejectsDeletedUser(t *testing.T) {
	sessions, err := session.NewIssuer([]byte("test-session-secret"))
	require.NoError(t, err)
	token, err := sessions.Issue(&models.User{ID: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)

	svc, _, _ := newTestService(t, happyProvider(), &fakeChannels{})
	_, err = svc.Authenticate(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotAuthorized, apperrors.KindOf(err))
}

func TestDeauthorizeRevokesAndDeletes(t *testing.T) {
	provider := happyProvider()
	svc, s, _ := newTestService(t, provider, &fakeChannels{})

	result, err := svc.CompleteAuthorization(context.Background(), "code")
	require.NoError(t, err)

	require.NoError(t, svc.Deauthorize(context.Background(), result.User.ID))
	assert.Equal(t, []string{"refresh-secret"}, provider.revoked)

	_, err = s.GetCredential(context.Background(), result.User.ID)
	require.Error(t, err)

	// The user row survives the teardown.
	_, err = s.GetUser(context.Background(), result.User.ID)
	require.NoError(t, err)
}

func TestDeauthorizeDeletesEvenWhenRevocationFails(t *testing.T) {
	provider := happyProvider()
	provider.revokeErr = fmt.Errorf("revocation endpoint down")
	svc, s, _ := newTestService(t, provider, &fakeChannels{})

	result, err := svc.CompleteAuthorization(context.Background(), "code")
	require.NoError(t, err)

	require.NoError(t, svc.Deauthorize(context.Background(), result.User.ID))
	_, err = s.GetCredential(context.Background(), result.User.ID)
	require.Error(t, err)
}

func TestDeauthorizeWithoutCredentialIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t, happyProvider(), &fakeChannels{})
	require.NoError(t, svc.Deauthorize(context.Background(), "nobody"))
}
