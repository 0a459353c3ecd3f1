package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"kinto-admin/internal/auth/config"
	"kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/auth/domain/repository"
	"kinto-admin/internal/kinto"
	apperrors "kinto-admin/internal/shared/errors"
)

var (
	ErrInvalidServerURL = apperrors.NewValidationError("Server URL must look like https://host/v1").WithCause(apperrors.ErrInvalidServerURL)
	ErrUnknownMethod    = apperrors.NewValidationError("Unsupported authentication method").WithCause(apperrors.ErrUnsupportedAuth)
	ErrMissingProvider  = apperrors.NewValidationError("Couldn't find provider data in the server capabilities").WithCause(apperrors.ErrMissingProvider)
	ErrInvalidPayload   = apperrors.NewValidationError("Invalid authentication payload")
	ErrSessionNotFound  = apperrors.NewNotFoundError("session").WithCause(apperrors.ErrSessionNotFound)
)

var serverURLPattern = regexp.MustCompile(`^https?://.+/v\d+/?`)

// AuthUsecaseInterface defines the contract for authentication use cases.
type AuthUsecaseInterface interface {
	SupportedMethods(info kinto.ServerInfo) []model.Method
	NormalizeAuthData(data model.AuthData) model.AuthData
	ServerByPriority(history []string) string
	ValidateServerURL(server string) error
	Resolve(data model.AuthData, info kinto.ServerInfo) (*model.SubmitDecision, error)
	CompleteExternal(payload, token string) (model.AuthData, error)

	IssueToken(ctx context.Context, sessionID, clientID, server string) (string, error)
	ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error)

	SaveSession(ctx context.Context, sessionID, clientID string, data model.AuthData) error
	LoadSession(ctx context.Context, sessionID string) (*model.Session, model.AuthData, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ActiveSessions(ctx context.Context) ([]*model.Session, error)
}

// AuthUsecase implements the authentication logic.
type AuthUsecase struct {
	tokenSvc  repository.TokenService
	inspector repository.TokenInspector
	sealer    repository.Sealer
	sessions  repository.SessionRepository
	config    *config.Config
	now       func() time.Time
}

// NewAuthUsecase creates the auth use cases
func NewAuthUsecase(
	tokenSvc repository.TokenService,
	inspector repository.TokenInspector,
	sealer repository.Sealer,
	sessions repository.SessionRepository,
	cfg *config.Config,
) *AuthUsecase {
	return &AuthUsecase{
		tokenSvc:  tokenSvc,
		inspector: inspector,
		sealer:    sealer,
		sessions:  sessions,
		config:    cfg,
		now:       time.Now,
	}
}

// SupportedMethods returns anonymous followed by every known method the
// server exposes as a capability.
func (uc *AuthUsecase) SupportedMethods(info kinto.ServerInfo) []model.Method {
	methods := []model.Method{model.MethodAnonymous}
	for _, m := range model.KnownMethods {
		if info.HasCapability(string(m)) {
			methods = append(methods, m)
		}
	}
	return methods
}

// NormalizeAuthData drops credentials for methods that do not use them and
// guarantees a credentials object for those that do.
func (uc *AuthUsecase) NormalizeAuthData(data model.AuthData) model.AuthData {
	switch data.AuthType {
	case model.MethodAnonymous, model.MethodFxA, model.MethodPortier, model.MethodOpenID:
		data.Credentials = nil
	default:
		if data.Credentials == nil {
			data.Credentials = &model.Credentials{}
		}
	}
	data.Server = strings.TrimSpace(data.Server)
	return data
}

// ServerByPriority picks the single server, else the most recent history entry, else the default
func (uc *AuthUsecase) ServerByPriority(history []string) string {
	if uc.config.SingleServer != "" {
		return uc.config.SingleServer
	}
	if len(history) > 0 && history[0] != "" {
		return history[0]
	}
	return uc.config.DefaultServer
}

// ValidateServerURL checks the server URL looks like a versioned Kinto root
func (uc *AuthUsecase) ValidateServerURL(server string) error {
	if !serverURLPattern.MatchString(server) {
		return ErrInvalidServerURL
	}
	if uc.config.SingleServer != "" && strings.TrimRight(server, "/") != strings.TrimRight(uc.config.SingleServer, "/") {
		return ErrInvalidServerURL
	}
	return nil
}

// Resolve decides what to do with a submitted auth form
func (uc *AuthUsecase) Resolve(data model.AuthData, info kinto.ServerInfo) (*model.SubmitDecision, error) {
	if !data.AuthType.Valid() {
		return nil, ErrUnknownMethod
	}
	data = uc.NormalizeAuthData(data)
	if err := uc.ValidateServerURL(data.Server); err != nil {
		return nil, err
	}
	server := strings.TrimRight(data.Server, "/")

	switch data.AuthType {
	case model.MethodFxA, model.MethodPortier:
		redirect, err := uc.callbackURL(data)
		if err != nil {
			return nil, err
		}
		q := url.Values{}
		q.Set("redirect", redirect)
		loginPath := "/fxa-oauth/login"
		if data.AuthType == model.MethodPortier {
			loginPath = "/portier/login"
			if data.Email != "" {
				q.Set("email", data.Email)
			}
		}
		return &model.SubmitDecision{
			Kind:       model.DecisionExternal,
			AuthData:   data,
			RedirectTo: server + loginPath + "?" + q.Encode(),
		}, nil

	case model.MethodOpenID:
		var provider *kinto.OpenIDProvider
		for _, p := range info.OpenIDProviders() {
			if p.Name == data.Provider {
				p := p
				provider = &p
				break
			}
		}
		if provider == nil {
			return nil, ErrMissingProvider
		}
		data.TokenType = provider.HeaderType
		redirect, err := uc.callbackURL(data)
		if err != nil {
			return nil, err
		}
		q := url.Values{}
		q.Set("callback", redirect)
		q.Set("scope", "openid email")
		return &model.SubmitDecision{
			Kind:       model.DecisionOpenID,
			AuthData:   data,
			RedirectTo: server + provider.AuthPath + "?" + q.Encode(),
			Provider:   provider,
		}, nil
	}

	return &model.SubmitDecision{Kind: model.DecisionSetup, AuthData: data}, nil
}

// callbackURL is where the server sends the browser back with the token appended
func (uc *AuthUsecase) callbackURL(data model.AuthData) (string, error) {
	payload, err := EncodePayload(data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/auth/callback/%s/", uc.config.ConsoleURL, payload), nil
}

// EncodePayload serializes auth data, without secrets, for a redirect URL
func EncodePayload(data model.AuthData) (string, error) {
	data.Credentials = nil
	data.Token = ""
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodePayload reverses EncodePayload
func DecodePayload(payload string) (model.AuthData, error) {
	var data model.AuthData
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return data, ErrInvalidPayload
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, ErrInvalidPayload
	}
	if !data.AuthType.IsExternal() {
		return data, ErrInvalidPayload
	}
	return data, nil
}

type openIDToken struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// CompleteExternal rebuilds auth data from a callback payload and the token
// the server appended to it.
func (uc *AuthUsecase) CompleteExternal(payload, token string) (model.AuthData, error) {
	data, err := DecodePayload(payload)
	if err != nil {
		return data, err
	}
	if unescaped, err := url.PathUnescape(token); err == nil {
		token = unescaped
	}
	if token == "" {
		return data, ErrInvalidPayload
	}

	if data.AuthType != model.MethodOpenID {
		data.Token = token
		return data, nil
	}

	var parsed openIDToken
	if err := json.Unmarshal([]byte(token), &parsed); err != nil || parsed.AccessToken == "" {
		data.Token = token
	} else {
		data.Token = parsed.AccessToken
		if data.TokenType == "" {
			data.TokenType = parsed.TokenType
		}
		if parsed.ExpiresIn > 0 {
			data.ExpiresAt = uc.now().Add(time.Duration(parsed.ExpiresIn) * time.Second).Unix()
		}
	}

	if data.ExpiresAt == 0 && uc.inspector != nil {
		candidates := []string{data.Token, parsed.IDToken}
		for _, candidate := range candidates {
			if candidate == "" {
				continue
			}
			if info, err := uc.inspector.Inspect(candidate); err == nil && !info.ExpiresAt.IsZero() {
				data.ExpiresAt = info.ExpiresAt.Unix()
				if data.Email == "" {
					data.Email = info.Email
				}
				break
			}
		}
	}
	return data, nil
}

// IssueToken signs a console token for a session
func (uc *AuthUsecase) IssueToken(ctx context.Context, sessionID, clientID, server string) (string, error) {
	return uc.tokenSvc.GenerateToken(ctx, sessionID, clientID, server)
}

// ValidateToken validates a console token
func (uc *AuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("Invalid token").WithCause(err)
	}
	return claims, nil
}

// SaveSession persists a session with its auth data sealed
func (uc *AuthUsecase) SaveSession(ctx context.Context, sessionID, clientID string, data model.AuthData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	sealed, err := uc.sealer.Seal(raw)
	if err != nil {
		return apperrors.NewInternalError("failed to seal session").WithCause(err)
	}

	now := uc.now()
	expires := now.Add(uc.config.SessionTTL)
	if data.ExpiresAt > 0 {
		if tokenExpiry := time.Unix(data.ExpiresAt, 0); tokenExpiry.Before(expires) {
			expires = tokenExpiry
		}
	}

	return uc.sessions.Save(ctx, &model.Session{
		ID:         sessionID,
		ClientID:   clientID,
		Server:     data.Server,
		AuthType:   data.AuthType,
		SealedAuth: sealed,
		ExpiresAt:  expires,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// LoadSession returns a persisted session and its unsealed auth data
func (uc *AuthUsecase) LoadSession(ctx context.Context, sessionID string) (*model.Session, model.AuthData, error) {
	var data model.AuthData
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, data, ErrSessionNotFound
		}
		return nil, data, err
	}
	if session.Expired(uc.now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, data, apperrors.NewAuthenticationError("Session expired").WithCause(apperrors.ErrSessionExpired)
	}
	raw, err := uc.sealer.Open(session.SealedAuth)
	if err != nil {
		return nil, data, apperrors.NewInternalError("failed to open session").WithCause(err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, data, apperrors.NewInternalError("corrupted session").WithCause(err)
	}
	return session, data, nil
}

// DeleteSession removes a persisted session; a missing session is not an error
func (uc *AuthUsecase) DeleteSession(ctx context.Context, sessionID string) error {
	err := uc.sessions.Delete(ctx, sessionID)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	return nil
}

// ActiveSessions lists sessions that have not expired
func (uc *AuthUsecase) ActiveSessions(ctx context.Context) ([]*model.Session, error) {
	sessions, err := uc.sessions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	active := sessions[:0]
	for _, s := range sessions {
		if !s.Expired(now) {
			active = append(active, s)
		}
	}
	return active, nil
}

// IsSessionMissing reports whether err means the session does not exist or expired
func IsSessionMissing(err error) bool {
	return errors.Is(err, apperrors.ErrSessionNotFound) || errors.Is(err, apperrors.ErrSessionExpired)
}
