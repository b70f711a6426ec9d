package models

import "time"

// Credential stores the provider auth material for a user, exactly one row
// per user. Secret fields hold sealed envelopes, never plaintext.
type Credential struct {
	UserID          string    `json:"user_id"`
	AccessSealed    string    `json:"access_sealed"`
	RefreshSealed   string    `json:"refresh_sealed,omitempty"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	Scope           string    `json:"scope"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasRefreshSecret reports whether the credential can be renewed once the
// access secret expires. Without one, expiry is terminal until the user
// re-authorizes.
func (c *Credential) HasRefreshSecret() bool {
	return c != nil && c.RefreshSealed != ""
}

// Remaining returns how long the access secret stays valid from now.
func (c *Credential) Remaining(now time.Time) time.Duration {
	return c.AccessExpiresAt.Sub(now)
}
