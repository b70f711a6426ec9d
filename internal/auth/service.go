// Package auth orchestrates the authorization lifecycle: the OAuth redirect
// dance, user and credential persistence, session issue, and teardown.
package auth

import (
	"context"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/crypto"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/oauth"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/session"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/youtube"
	"github.com/google/uuid"
)

// ProviderClient is the OAuth surface the service needs.
type ProviderClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.TokenResponse, error)
	FetchProfile(ctx context.Context, accessSecret string) (*oauth.UserProfile, error)
	Revoke(ctx context.Context, secret string) error
}

// ChannelResolver resolves the authorizing user's channel with a raw access
// secret. Implemented by the youtube client.
type ChannelResolver interface {
	ChannelFor(ctx context.Context, accessSecret string) (*youtube.Channel, error)
}

// Authorization is the outcome of a completed login.
type Authorization struct {
	User         *models.User
	SessionToken string
}

// Service wires the OAuth client, store, codec, and session issuer together.
type Service struct {
	provider ProviderClient
	channels ChannelResolver
	store    store.Store
	codec    *crypto.Codec
	sessions *session.Issuer
	auditLog *audit.Logger
	log      *logging.Logger
}

// NewService creates a Service.
func NewService(provider ProviderClient, channels ChannelResolver, s store.Store, codec *crypto.Codec, sessions *session.Issuer, auditLog *audit.Logger, log *logging.Logger) *Service {
	return &Service{
		provider: provider,
		channels: channels,
		store:    s,
		codec:    codec,
		sessions: sessions,
		auditLog: auditLog,
		log:      log,
	}
}

// BeginAuthorization returns the provider consent URL plus the state nonce
// the callback must echo.
func (s *Service) BeginAuthorization() (authURL, state string) {
	state = uuid.NewString()
	return s.provider.AuthCodeURL(state), state
}

// CompleteAuthorization redeems the callback code: exchanges it, looks up
// the user's identity and channel, persists the user and sealed credential,
// and issues a session token.
func (s *Service) CompleteAuthorization(ctx context.Context, code string) (*Authorization, error) {
	tokens, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, s.failed(ctx, "exchange", err)
	}

	profile, err := s.provider.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, s.failed(ctx, "identity", err)
	}

	// Channel lookup is best effort; an account with no channel can still
	// use notes and AI.
	channelID := ""
	if channel, err := s.channels.ChannelFor(ctx, tokens.AccessToken); err == nil {
		channelID = channel.ID
	} else {
		s.log.WarnWithContext(ctx, "channel lookup failed during authorization", "error", err.Error())
	}

	user, err := s.store.UpsertUser(ctx, &models.User{
		SubjectID: profile.Sub,
		Email:     profile.Email,
		Name:      profile.Name,
		AvatarURL: profile.Picture,
		ChannelID: channelID,
	})
	if err != nil {
		return nil, s.failed(ctx, "persist user", err)
	}

	accessSealed, err := s.codec.Seal(tokens.AccessToken)
	if err != nil {
		return nil, s.failed(ctx, "seal", err)
	}
	refreshSealed := ""
	if tokens.RefreshToken != "" {
		refreshSealed, err = s.codec.Seal(tokens.RefreshToken)
		if err != nil {
			return nil, s.failed(ctx, "seal", err)
		}
	}
	err = s.store.UpsertCredential(ctx, &models.Credential{
		UserID:          user.ID,
		AccessSealed:    accessSealed,
		RefreshSealed:   refreshSealed,
		AccessExpiresAt: time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
		Scope:           tokens.Scope,
	})
	if err != nil {
		return nil, s.failed(ctx, "persist credential", err)
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, s.failed(ctx, "session", err)
	}

	s.record(audit.NewEvent(audit.UserAuthorized).
		WithUserID(user.ID).
		WithField("has_refresh_secret", refreshSealed != ""))
	s.log.InfoWithContext(ctx, "user authorized", "user_id", user.ID)

	return &Authorization{User: user, SessionToken: token}, nil
}

// Authenticate verifies a session token and confirms the user still exists.
// A valid token for a deleted user is rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.sessions.Verify(token)
	if err != nil {
		s.record(audit.NewEvent(audit.SessionRejected).
			WithSeverity(audit.SeverityWarning).
			WithField("kind", string(errors.KindOf(err))))
		return nil, err
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		var notFound *errors.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, &errors.ErrNotAuthorized{UserID: claims.UserID}
		}
		return nil, err
	}
	return user, nil
}

// Deauthorize tears down a user's provider link: best-effort revocation at
// the provider, then unconditional local credential delete. The user row and
// their notes survive.
func (s *Service) Deauthorize(ctx context.Context, userID string) error {
	cred, err := s.store.GetCredential(ctx, userID)
	if err == nil && cred.HasRefreshSecret() {
		if refreshSecret, err := s.codec.Open(cred.RefreshSealed); err == nil {
			if err := s.provider.Revoke(ctx, refreshSecret); err != nil {
				s.log.WarnWithContext(ctx, "provider revocation failed", "user_id", userID, "error", err.Error())
			}
		}
	}

	if err := s.store.DeleteCredential(ctx, userID); err != nil {
		return err
	}

	s.record(audit.NewEvent(audit.AccountDeauthorized).WithUserID(userID))
	s.log.InfoWithContext(ctx, "account deauthorized", "user_id", userID)
	return nil
}

func (s *Service) failed(ctx context.Context, stage string, err error) error {
	s.record(audit.NewEvent(audit.AuthorizationFailed).
		WithSeverity(audit.SeverityError).
		WithField("stage", stage).
		WithField("error", err.Error()))
	s.log.ErrorWithContext(ctx, "authorization failed", "stage", stage, "error", err.Error())
	return &errors.ErrAuthorizationFailed{Stage: stage, Err: err}
}

func (s *Service) record(event *audit.Event) {
	if s.auditLog != nil {
		s.auditLog.Record(event)
	}
}
