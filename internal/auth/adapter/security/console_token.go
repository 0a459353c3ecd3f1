package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kinto-admin/internal/auth/config"
	"kinto-admin/internal/auth/domain/repository"
	apperrors "kinto-admin/internal/shared/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid          = fmt.Errorf("console token is invalid: %w", apperrors.ErrInvalidToken)
	ErrTokenExpired          = fmt.Errorf("console token is expired: %w", apperrors.ErrTokenExpired)
	ErrTokenSignatureInvalid = fmt.Errorf("console token signature is invalid: %w", apperrors.ErrInvalidToken)
)

// ConsoleTokenService signs the HS256 tokens naming a console session.
// Tokens are bound to the public console URL through their audience.
type ConsoleTokenService struct {
	secretKey []byte
	issuer    string
	audience  string
	ttl       time.Duration
	parser    *jwt.Parser
}

// NewConsoleTokenService creates the token service from the auth configuration
func NewConsoleTokenService(cfg *config.Config) (*ConsoleTokenService, error) {
	switch {
	case cfg.SecretKey == "":
		return nil, errors.New("jwt secret key cannot be empty")
	case cfg.JWTIssuer == "":
		return nil, errors.New("jwt issuer cannot be empty")
	case cfg.SessionTTL <= 0:
		return nil, errors.New("jwt session TTL must be positive")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.JWTIssuer),
		jwt.WithExpirationRequired(),
	}
	if cfg.ConsoleURL != "" {
		opts = append(opts, jwt.WithAudience(cfg.ConsoleURL))
	}

	return &ConsoleTokenService{
		secretKey: []byte(cfg.SecretKey),
		issuer:    cfg.JWTIssuer,
		audience:  cfg.ConsoleURL,
		ttl:       cfg.SessionTTL,
		parser:    jwt.NewParser(opts...),
	}, nil
}

// GenerateToken signs a token for a console session. server is the Kinto
// server the session is bound to, empty before login.
func (s *ConsoleTokenService) GenerateToken(_ context.Context, sessionID, clientID, server string) (string, error) {
	now := time.Now()
	registered := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   sessionID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	if s.audience != "" {
		registered.Audience = jwt.ClaimStrings{s.audience}
	}

	claims := &repository.Claims{
		SessionID:        sessionID,
		ClientID:         clientID,
		Server:           server,
		RegisteredClaims: registered,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}

// ValidateToken checks the signature, issuer, audience and expiry of a token
func (s *ConsoleTokenService) ValidateToken(_ context.Context, tokenString string) (*repository.Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	claims := &repository.Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTokenSignatureInvalid
	case err != nil:
		return nil, ErrTokenInvalid
	}

	if !token.Valid || claims.SessionID == "" || claims.SessionID != claims.Subject {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
