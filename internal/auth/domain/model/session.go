package model

import "time"

// Session is a persisted console session. The auth data is stored sealed.
type Session struct {
	ID         string    `json:"id" bson:"_id"`
	ClientID   string    `json:"client_id" bson:"client_id"`
	Server     string    `json:"server" bson:"server"`
	AuthType   Method    `json:"auth_type" bson:"auth_type"`
	SealedAuth string    `json:"-" bson:"sealed_auth"`
	ExpiresAt  time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
