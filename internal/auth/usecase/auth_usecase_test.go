package usecase_test

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"kinto-admin/internal/auth/adapter/persistence/memory"
	"kinto-admin/internal/auth/adapter/security"
	"kinto-admin/internal/auth/config"
	"kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/auth/testutil"
	"kinto-admin/internal/auth/usecase"
	apperrors "kinto-admin/internal/shared/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AuthUsecaseTestSuite struct {
	suite.Suite
	cfg      *config.Config
	sessions *memory.SessionRepository
	usecase  *usecase.AuthUsecase
	authData *testutil.AuthDataFixture
	infos    *testutil.ServerInfoFixture
}

func (suite *AuthUsecaseTestSuite) SetupTest() {
	suite.cfg = testutil.TestConfig()
	tokenSvc, err := security.NewConsoleTokenService(suite.cfg)
	require.NoError(suite.T(), err)
	sealer, err := security.NewSealer(suite.cfg.SecretKey)
	require.NoError(suite.T(), err)
	suite.sessions = memory.NewSessionRepository()

	suite.usecase = usecase.NewAuthUsecase(tokenSvc, security.NewJWTInspector(), sealer, suite.sessions, suite.cfg)
	suite.authData = testutil.NewAuthDataFixture()
	suite.infos = testutil.NewServerInfoFixture()
}

func (suite *AuthUsecaseTestSuite) TestSupportedMethods() {
	info := suite.infos.WithCapabilities("openid", "basicauth", "history")
	methods := suite.usecase.SupportedMethods(info)
	assert.Equal(suite.T(), []model.Method{model.MethodAnonymous, model.MethodBasicAuth, model.MethodOpenID}, methods)

	methods = suite.usecase.SupportedMethods(suite.infos.WithCapabilities())
	assert.Equal(suite.T(), []model.Method{model.MethodAnonymous}, methods)
}

func (suite *AuthUsecaseTestSuite) TestNormalizeAuthData() {
	data := suite.authData.BasicAuth("user", "pass")
	data.AuthType = model.MethodPortier
	normalized := suite.usecase.NormalizeAuthData(data)
	assert.Nil(suite.T(), normalized.Credentials)

	account := model.AuthData{Server: " " + testutil.TestServer + " ", AuthType: model.MethodAccount}
	normalized = suite.usecase.NormalizeAuthData(account)
	require.NotNil(suite.T(), normalized.Credentials)
	assert.Equal(suite.T(), testutil.TestServer, normalized.Server)
}

func (suite *AuthUsecaseTestSuite) TestServerByPriority() {
	assert.Equal(suite.T(), config.DefaultServer, suite.usecase.ServerByPriority(nil))
	assert.Equal(suite.T(), "https://a.example.com/v1", suite.usecase.ServerByPriority([]string{"https://a.example.com/v1", "https://b.example.com/v1"}))

	suite.cfg.SingleServer = "https://single.example.com/v1"
	assert.Equal(suite.T(), "https://single.example.com/v1", suite.usecase.ServerByPriority([]string{"https://a.example.com/v1"}))
}

func (suite *AuthUsecaseTestSuite) TestValidateServerURL() {
	assert.NoError(suite.T(), suite.usecase.ValidateServerURL("https://kinto.example.com/v1"))
	assert.NoError(suite.T(), suite.usecase.ValidateServerURL("http://localhost:8888/v1/"))

	for _, bad := range []string{"", "kinto.example.com/v1", "https://kinto.example.com/", "ftp://host/v1"} {
		err := suite.usecase.ValidateServerURL(bad)
		assert.Error(suite.T(), err, bad)
		assert.ErrorIs(suite.T(), err, apperrors.ErrInvalidServerURL)
	}

	suite.cfg.SingleServer = "https://single.example.com/v1"
	assert.Error(suite.T(), suite.usecase.ValidateServerURL("https://kinto.example.com/v1"))
	assert.NoError(suite.T(), suite.usecase.ValidateServerURL("https://single.example.com/v1/"))
}

func (suite *AuthUsecaseTestSuite) TestResolve_CredentialMethodsSetUpDirectly() {
	decision, err := suite.usecase.Resolve(suite.authData.BasicAuth("user", "pass"), suite.infos.WithCapabilities("basicauth"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), model.DecisionSetup, decision.Kind)
	assert.Empty(suite.T(), decision.RedirectTo)
	assert.Equal(suite.T(), "user", decision.AuthData.Credentials.Username)

	decision, err = suite.usecase.Resolve(suite.authData.Anonymous(), suite.infos.WithCapabilities())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), model.DecisionSetup, decision.Kind)
}

func (suite *AuthUsecaseTestSuite) TestResolve_UnknownMethod() {
	_, err := suite.usecase.Resolve(model.AuthData{Server: testutil.TestServer, AuthType: "kerberos"}, suite.infos.WithCapabilities())
	assert.ErrorIs(suite.T(), err, apperrors.ErrUnsupportedAuth)
}

func (suite *AuthUsecaseTestSuite) TestResolve_PortierRedirect() {
	decision, err := suite.usecase.Resolve(suite.authData.Portier("me@example.com"), suite.infos.WithCapabilities("portier"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), model.DecisionExternal, decision.Kind)

	redirect, err := url.Parse(decision.RedirectTo)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "/v1/portier/login", redirect.Path)
	assert.Equal(suite.T(), "me@example.com", redirect.Query().Get("email"))

	callback := redirect.Query().Get("redirect")
	assert.True(suite.T(), strings.HasPrefix(callback, "http://console.test/api/auth/callback/"))
	assert.True(suite.T(), strings.HasSuffix(callback, "/"))
}

func (suite *AuthUsecaseTestSuite) TestResolve_FxARedirect() {
	data := model.AuthData{Server: testutil.TestServer, AuthType: model.MethodFxA}
	decision, err := suite.usecase.Resolve(data, suite.infos.WithCapabilities("fxa"))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), strings.HasPrefix(decision.RedirectTo, testutil.TestServer+"/fxa-oauth/login?redirect="))
}

func (suite *AuthUsecaseTestSuite) TestResolve_OpenID() {
	info := suite.infos.WithOpenIDProvider("google", "/openid/google/login", "Bearer")

	decision, err := suite.usecase.Resolve(suite.authData.OpenID("google"), info)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), model.DecisionOpenID, decision.Kind)
	require.NotNil(suite.T(), decision.Provider)
	assert.Equal(suite.T(), "Bearer", decision.AuthData.TokenType)

	redirect, err := url.Parse(decision.RedirectTo)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "/v1/openid/google/login", redirect.Path)
	assert.Equal(suite.T(), "openid email", redirect.Query().Get("scope"))
	assert.NotEmpty(suite.T(), redirect.Query().Get("callback"))

	_, err = suite.usecase.Resolve(suite.authData.OpenID("github"), info)
	assert.ErrorIs(suite.T(), err, apperrors.ErrMissingProvider)
}

func (suite *AuthUsecaseTestSuite) TestPayloadNeverCarriesSecrets() {
	data := suite.authData.BasicAuth("user", "secret")
	data.AuthType = model.MethodPortier
	data.Token = "tok"
	payload, err := usecase.EncodePayload(data)
	require.NoError(suite.T(), err)

	decoded, err := usecase.DecodePayload(payload)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), decoded.Credentials)
	assert.Empty(suite.T(), decoded.Token)

	_, err = usecase.DecodePayload("%%%")
	assert.ErrorIs(suite.T(), err, usecase.ErrInvalidPayload)

	basic, _ := usecase.EncodePayload(suite.authData.BasicAuth("u", "p"))
	_, err = usecase.DecodePayload(basic)
	assert.ErrorIs(suite.T(), err, usecase.ErrInvalidPayload)
}

func (suite *AuthUsecaseTestSuite) TestCompleteExternal_Portier() {
	payload, err := usecase.EncodePayload(suite.authData.Portier("me@example.com"))
	require.NoError(suite.T(), err)

	data, err := suite.usecase.CompleteExternal(payload, "portier-token")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), model.MethodPortier, data.AuthType)
	assert.Equal(suite.T(), "portier-token", data.Token)
	assert.Equal(suite.T(), "Portier portier-token", data.AuthorizationHeader())

	_, err = suite.usecase.CompleteExternal(payload, "")
	assert.Error(suite.T(), err)
}

func (suite *AuthUsecaseTestSuite) TestCompleteExternal_OpenIDTokenJSON() {
	data := suite.authData.OpenID("google")
	data.TokenType = "Bearer"
	payload, err := usecase.EncodePayload(data)
	require.NoError(suite.T(), err)

	idToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"email": "me@example.com",
		"exp":   time.Now().Add(30 * time.Minute).Unix(),
	})
	signed, err := idToken.SignedString([]byte("provider-secret"))
	require.NoError(suite.T(), err)

	raw, _ := json.Marshal(map[string]interface{}{
		"access_token": "opaque-access",
		"token_type":   "Bearer",
		"id_token":     signed,
	})

	completed, err := suite.usecase.CompleteExternal(payload, url.PathEscape(string(raw)))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "opaque-access", completed.Token)
	assert.Equal(suite.T(), "Bearer opaque-access", completed.AuthorizationHeader())
	assert.NotZero(suite.T(), completed.ExpiresAt)
	assert.Equal(suite.T(), "me@example.com", completed.Email)
}

func (suite *AuthUsecaseTestSuite) TestCompleteExternal_OpenIDExpiresIn() {
	payload, _ := usecase.EncodePayload(suite.authData.OpenID("google"))
	raw, _ := json.Marshal(map[string]interface{}{"access_token": "a", "token_type": "Bearer", "expires_in": 3600})

	completed, err := suite.usecase.CompleteExternal(payload, string(raw))
	require.NoError(suite.T(), err)
	assert.InDelta(suite.T(), time.Now().Add(time.Hour).Unix(), completed.ExpiresAt, 5)
}

func (suite *AuthUsecaseTestSuite) TestTokenRoundTrip() {
	ctx := context.Background()
	token, err := suite.usecase.IssueToken(ctx, "session-1", "client-1", testutil.TestServer)
	require.NoError(suite.T(), err)

	claims, err := suite.usecase.ValidateToken(ctx, token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "session-1", claims.SessionID)
	assert.Equal(suite.T(), "client-1", claims.ClientID)

	_, err = suite.usecase.ValidateToken(ctx, "garbage")
	assert.True(suite.T(), apperrors.IsAuthentication(err))
}

func (suite *AuthUsecaseTestSuite) TestSessionLifecycle() {
	ctx := context.Background()
	data := suite.authData.Account("alice", "s3cret")

	require.NoError(suite.T(), suite.usecase.SaveSession(ctx, "session-1", "client-1", data))

	stored, err := suite.sessions.Get(ctx, "session-1")
	require.NoError(suite.T(), err)
	assert.NotContains(suite.T(), stored.SealedAuth, "s3cret")
	assert.Equal(suite.T(), model.MethodAccount, stored.AuthType)

	session, loaded, err := suite.usecase.LoadSession(ctx, "session-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "client-1", session.ClientID)
	assert.Equal(suite.T(), "s3cret", loaded.Credentials.Password)

	active, err := suite.usecase.ActiveSessions(ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), active, 1)

	require.NoError(suite.T(), suite.usecase.DeleteSession(ctx, "session-1"))
	require.NoError(suite.T(), suite.usecase.DeleteSession(ctx, "session-1"))

	_, _, err = suite.usecase.LoadSession(ctx, "session-1")
	assert.True(suite.T(), usecase.IsSessionMissing(err))
}

func (suite *AuthUsecaseTestSuite) TestSaveSession_TokenExpiryCapsSession() {
	ctx := context.Background()
	data := model.AuthData{
		Server:    testutil.TestServer,
		AuthType:  model.MethodOpenID,
		Token:     "t",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	require.NoError(suite.T(), suite.usecase.SaveSession(ctx, "short", "client", data))

	_, _, err := suite.usecase.LoadSession(ctx, "short")
	assert.ErrorIs(suite.T(), err, apperrors.ErrSessionExpired)
	assert.True(suite.T(), usecase.IsSessionMissing(err))
}

func TestAuthUsecaseTestSuite(t *testing.T) {
	suite.Run(t, new(AuthUsecaseTestSuite))
}
