package testutil

import (
	"time"

	"kinto-admin/internal/auth/config"
	"kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/kinto"
)

// TestServer is the server URL used across auth tests
const TestServer = "https://kinto.example.com/v1"

// AuthDataFixture provides auth data for every method
type AuthDataFixture struct{}

// NewAuthDataFixture creates a new AuthDataFixture instance
func NewAuthDataFixture() *AuthDataFixture {
	return &AuthDataFixture{}
}

// Anonymous returns anonymous auth data
func (f *AuthDataFixture) Anonymous() model.AuthData {
	return model.AnonymousAuthData(TestServer)
}

// BasicAuth returns basicauth data with credentials
func (f *AuthDataFixture) BasicAuth(username, password string) model.AuthData {
	return model.AuthData{
		Server:      TestServer,
		AuthType:    model.MethodBasicAuth,
		Credentials: &model.Credentials{Username: username, Password: password},
	}
}

// Account returns Kinto account auth data
func (f *AuthDataFixture) Account(username, password string) model.AuthData {
	data := f.BasicAuth(username, password)
	data.AuthType = model.MethodAccount
	return data
}

// Portier returns portier auth data before the redirect
func (f *AuthDataFixture) Portier(email string) model.AuthData {
	return model.AuthData{Server: TestServer, AuthType: model.MethodPortier, Email: email}
}

// OpenID returns openid auth data before the redirect
func (f *AuthDataFixture) OpenID(provider string) model.AuthData {
	return model.AuthData{Server: TestServer, AuthType: model.MethodOpenID, Provider: provider}
}

// ServerInfoFixture provides server info documents
type ServerInfoFixture struct{}

// NewServerInfoFixture creates a new ServerInfoFixture instance
func NewServerInfoFixture() *ServerInfoFixture {
	return &ServerInfoFixture{}
}

// WithCapabilities returns server info exposing the named capabilities
func (f *ServerInfoFixture) WithCapabilities(names ...string) kinto.ServerInfo {
	info := kinto.DefaultServerInfo()
	info.URL = TestServer + "/"
	for _, name := range names {
		info.Capabilities[name] = map[string]interface{}{"description": name}
	}
	return info
}

// WithOpenIDProvider returns server info announcing one OpenID provider
func (f *ServerInfoFixture) WithOpenIDProvider(name, authPath, headerType string) kinto.ServerInfo {
	info := f.WithCapabilities()
	info.Capabilities["openid"] = map[string]interface{}{
		"providers": []interface{}{
			map[string]interface{}{
				"name":        name,
				"auth_path":   authPath,
				"header_type": headerType,
			},
		},
	}
	return info
}

// SessionFixture provides test data for Session model
type SessionFixture struct{}

// NewSessionFixture creates a new SessionFixture instance
func NewSessionFixture() *SessionFixture {
	return &SessionFixture{}
}

// ValidSession returns a session expiring in an hour
func (f *SessionFixture) ValidSession() *model.Session {
	return &model.Session{
		ID:         "test-session-id-123",
		ClientID:   "test-client-id",
		Server:     TestServer,
		AuthType:   model.MethodBasicAuth,
		SealedAuth: "sealed",
		ExpiresAt:  time.Now().Add(time.Hour),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// ExpiredSession returns a session that expired an hour ago
func (f *SessionFixture) ExpiredSession() *model.Session {
	s := f.ValidSession()
	s.ID = "expired-session-id"
	s.ExpiresAt = time.Now().Add(-time.Hour)
	return s
}

// TestConfig returns an auth configuration suitable for tests
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SecretKey = "test-secret-key-for-unit-tests-only"
	cfg.ConsoleURL = "http://console.test"
	return cfg
}
