package models

import "time"

// User is the stable identity record for an authorized account. It is
// created on the first successful authorization and its profile fields are
// refreshed on every subsequent one.
type User struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"` // provider subject id, unique
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"` // cached provider channel id
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
