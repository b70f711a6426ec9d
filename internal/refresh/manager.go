// Package refresh owns the provider credential lifecycle: deciding when an
// access secret is stale, performing the refresh exchange, and persisting the
// result. Concurrent refreshes for the same user are coalesced so the
// provider sees at most one in-flight exchange per user.
package refresh

import (
	"context"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/crypto"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/oauth"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
	"golang.org/x/sync/singleflight"
)

// DefaultBuffer is the lead time before expiry at which an access secret is
// treated as stale.
const DefaultBuffer = 5 * time.Minute

// Exchanger performs the provider's refresh-token exchange.
type Exchanger interface {
	Refresh(ctx context.Context, refreshSecret string) (*oauth.TokenResponse, error)
}

// Recorder receives refresh outcome counts. Implemented by the metrics
// package; optional.
type Recorder interface {
	RecordRefresh(outcome string, coalesced bool)
}

// Manager hands out valid access secrets, refreshing them transparently.
type Manager struct {
	store     store.Store
	codec     *crypto.Codec
	exchanger Exchanger
	buffer    time.Duration
	timeout   time.Duration

	group singleflight.Group

	auditLog *audit.Logger
	metrics  Recorder
	log      *logging.Logger

	// now is a test hook.
	now func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithBuffer overrides the staleness buffer window.
func WithBuffer(buffer time.Duration) Option {
	return func(m *Manager) {
		if buffer > 0 {
			m.buffer = buffer
		}
	}
}

// WithTimeout bounds each refresh exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithAudit attaches the audit logger.
func WithAudit(a *audit.Logger) Option {
	return func(m *Manager) {
		m.auditLog = a
	}
}

// WithMetrics attaches a refresh outcome recorder.
func WithMetrics(r Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager.
func NewManager(s store.Store, codec *crypto.Codec, exchanger Exchanger, log *logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:     s,
		codec:     codec,
		exchanger: exchanger,
		buffer:    DefaultBuffer,
		timeout:   15 * time.Second,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AccessSecret returns a valid plaintext access secret for the user,
// refreshing it first if it is inside the buffer window. The fresh path
// performs no network I/O.
func (m *Manager) AccessSecret(ctx context.Context, userID string) (string, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}

	if cred.Remaining(m.now()) > m.buffer {
		return m.codec.Open(cred.AccessSealed)
	}

	// Stale: coalesce concurrent refreshes per user. singleflight drops the
	// key once the call settles, so the next genuine staleness triggers a
	// fresh exchange rather than waiting behind this one forever.
	secret, err, shared := m.group.Do(userID, func() (interface{}, error) {
		return m.refresh(userID)
	})
	if m.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		m.metrics.RecordRefresh(outcome, shared)
	}
	if err != nil {
		return "", err
	}
	return secret.(string), nil
}

// Invalidate deletes the stored credential, e.g. after the provider reports
// the grant dead during an API call. The application session stays valid.
func (m *Manager) Invalidate(ctx context.Context, userID string) error {
	return m.store.DeleteCredential(ctx, userID)
}

func (m *Manager) load(ctx context.Context, userID string) (*models.Credential, error) {
	cred, err := m.store.GetCredential(ctx, userID)
	if err != nil {
		var notFound *errors.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, &errors.ErrNotAuthorized{UserID: userID}
		}
		return nil, err
	}
	return cred, nil
}

// refresh runs inside the singleflight group. It uses a detached, bounded
// context: a caller that gives up must not cancel the exchange out from
// under the other waiters.
func (m *Manager) refresh(userID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}

	// A racer that queued behind a just-settled refresh sees a fresh
	// credential here and returns it without another exchange.
	if cred.Remaining(m.now()) > m.buffer {
		return m.codec.Open(cred.AccessSealed)
	}

	if !cred.HasRefreshSecret() {
		m.record(audit.NewEvent(audit.ReauthorizationRequired).
			WithUserID(userID).
			WithSeverity(audit.SeverityWarning).
			WithField("reason", "no refresh secret"))
		return "", &errors.ErrReauthorizationRequired{UserID: userID, Reason: "no refresh secret on record"}
	}

	refreshSecret, err := m.codec.Open(cred.RefreshSealed)
	if err != nil {
		return "", err
	}

	resp, err := m.exchanger.Refresh(ctx, refreshSecret)
	if err != nil {
		return "", m.refreshFailed(userID, err)
	}

	accessSealed, err := m.codec.Seal(resp.AccessToken)
	if err != nil {
		return "", err
	}

	updated := &models.Credential{
		UserID:          userID,
		AccessSealed:    accessSealed,
		RefreshSealed:   cred.RefreshSealed,
		AccessExpiresAt: m.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Scope:           cred.Scope,
	}
	if resp.Scope != "" {
		updated.Scope = resp.Scope
	}
	// The provider rotates the refresh secret only sometimes; absence in
	// the response must not erase the stored one.
	if resp.RefreshToken != "" {
		rotated, err := m.codec.Seal(resp.RefreshToken)
		if err != nil {
			return "", err
		}
		updated.RefreshSealed = rotated
	}

	if err := m.store.UpsertCredential(ctx, updated); err != nil {
		return "", err
	}

	m.record(audit.NewEvent(audit.CredentialRefreshed).
		WithUserID(userID).
		WithField("rotated_refresh_secret", resp.RefreshToken != ""))
	m.log.InfoWithContext(ctx, "access secret refreshed", "user_id", userID)

	return resp.AccessToken, nil
}

// refreshFailed classifies an exchange failure. The store is never mutated
// on failure.
func (m *Manager) refreshFailed(userID string, err error) error {
	var tokenErr *oauth.TokenError
	if errors.As(err, &tokenErr) && tokenErr.Permanent() {
		m.record(audit.NewEvent(audit.ReauthorizationRequired).
			WithUserID(userID).
			WithSeverity(audit.SeverityWarning).
			WithField("provider_error", tokenErr.Code))
		return &errors.ErrReauthorizationRequired{UserID: userID, Reason: tokenErr.Code}
	}

	m.record(audit.NewEvent(audit.CredentialRefreshFailed).
		WithUserID(userID).
		WithSeverity(audit.SeverityError).
		WithField("error", err.Error()))
	return &errors.ErrUpstream{Operation: "token.refresh", Err: err}
}

func (m *Manager) record(event *audit.Event) {
	if m.auditLog != nil {
		m.auditLog.Record(event)
	}
}
