package repository

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and validates console session tokens
type TokenService interface {
	GenerateToken(ctx context.Context, sessionID, clientID, server string) (string, error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the console session token claims
type Claims struct {
	SessionID string `json:"sid"`
	ClientID  string `json:"cid"`
	Server    string `json:"server"`
	jwt.RegisteredClaims
}

// TokenInfo is what can be read from a provider token without verifying it
type TokenInfo struct {
	Subject   string
	Issuer    string
	Email     string
	ExpiresAt time.Time
}

// TokenInspector reads provider tokens (OpenID access or id tokens)
type TokenInspector interface {
	Inspect(token string) (*TokenInfo, error)
}

// Sealer encrypts data at rest
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}
