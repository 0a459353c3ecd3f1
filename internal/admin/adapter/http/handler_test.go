package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	adminhttp "kinto-admin/internal/admin/adapter/http"
	"kinto-admin/internal/admin/adapter/persistence/memory"
	"kinto-admin/internal/admin/adapter/remote"
	"kinto-admin/internal/admin/config"
	"kinto-admin/internal/admin/domain/service"
	"kinto-admin/internal/admin/usecase"
	"kinto-admin/internal/auth"
	authmemory "kinto-admin/internal/auth/adapter/persistence/memory"
	authmodel "kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/auth/testutil"
	authusecase "kinto-admin/internal/auth/usecase"
	"kinto-admin/internal/kinto"
	"kinto-admin/internal/kinto/kintotest"
	"kinto-admin/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// tom:secret
const tomAuthorization = "Basic dG9tOnNlY3JldA=="

type AdminHandlerTestSuite struct {
	suite.Suite
	app        *fiber.App
	srv        *kintotest.Server
	admin      *usecase.AdminUsecase
	handler    *adminhttp.AdminHandler
	consoleURL string
	token      string
	cookies    map[string]string
}

func (suite *AdminHandlerTestSuite) SetupTest() {
	suite.srv = kintotest.NewServer(
		kintotest.WithAccount(tomAuthorization, "account:tom"),
		kintotest.WithAccount("Portier tok", "portier:tom@example.com"),
		kintotest.WithCapability("basicauth", map[string]interface{}{}),
	)

	authCfg := testutil.TestConfig()
	authModule, err := auth.NewAuthModuleWithRepository(authmemory.NewSessionRepository(), authCfg)
	require.NoError(suite.T(), err)

	cfg := config.DefaultAdminConfig()
	filter, err := service.NewRecordFilter()
	require.NoError(suite.T(), err)
	deps := usecase.ConsoleDeps{
		Factory:  remote.NewFactory(cfg, nil, kinto.WithDoer(suite.srv.Doer())),
		Sessions: authModule.GetUsecase(),
		History:  memory.NewHistoryRepository(cfg.HistoryLimit),
		Stream:   memory.NewNotificationStream(100),
		Filter:   filter,
		Config:   cfg,
		Logger:   logger.NewNopLogger(),
	}
	suite.admin = usecase.NewAdminUsecase(deps, authModule.GetUsecase(), memory.NewServerInfoCache())
	suite.consoleURL = authCfg.ConsoleURL

	suite.handler = adminhttp.NewAdminHandler(suite.admin, authModule.GetUsecase(), authModule.GetMiddleware(), cfg, authCfg.ConsoleURL, nil)
	suite.app = fiber.New(fiber.Config{DisableStartupMessage: true, Immutable: true})
	suite.handler.RegisterRoutes(suite.app)
	suite.token = ""
	suite.cookies = map[string]string{}
}

func (suite *AdminHandlerTestSuite) TearDownTest() {
	suite.admin.Stop()
	suite.srv.Close()
}

// send performs a request with the current console token and cookies, and
// keeps what the server hands back.
func (suite *AdminHandlerTestSuite) send(req *http.Request) (*http.Response, map[string]interface{}) {
	if suite.token != "" {
		req.Header.Set("Authorization", "Bearer "+suite.token)
	}
	for name, value := range suite.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := suite.app.Test(req, -1)
	require.NoError(suite.T(), err)
	for _, cookie := range resp.Cookies() {
		if cookie.Value == "" {
			delete(suite.cookies, cookie.Name)
			continue
		}
		suite.cookies[cookie.Name] = cookie.Value
	}
	if token := resp.Header.Get(adminhttp.ConsoleTokenHeader); token != "" {
		suite.token = token
	}

	var body map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	return resp, body
}

func (suite *AdminHandlerTestSuite) request(method, path string, payload interface{}) (*http.Response, map[string]interface{}) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return suite.send(req)
}

func (suite *AdminHandlerTestSuite) login() {
	resp, body := suite.request(http.MethodPost, "/api/auth/session", authmodel.AuthData{
		Server:      kintotest.URL,
		AuthType:    authmodel.MethodBasicAuth,
		Credentials: &authmodel.Credentials{Username: "tom", Password: "secret"},
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode, body)
	require.Equal(suite.T(), "setup", body["kind"])
}

func path(body map[string]interface{}, keys ...string) interface{} {
	var current interface{} = body
	for _, k := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[k]
	}
	return current
}

func (suite *AdminHandlerTestSuite) TestHealth() {
	resp, body := suite.request(http.MethodGet, "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "ok", body["status"])
}

func (suite *AdminHandlerTestSuite) TestStateCreatesSession() {
	resp, body := suite.request(http.MethodGet, "/api/state", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.NotEmpty(suite.T(), suite.token)
	assert.NotEmpty(suite.T(), resp.Header.Get("Set-Cookie"))
	assert.Equal(suite.T(), false, path(body, "session", "authenticated"))

	first := suite.token
	resp, _ = suite.request(http.MethodGet, "/api/state", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Empty(suite.T(), resp.Header.Get(adminhttp.ConsoleTokenHeader), "a valid token is kept")
	assert.Equal(suite.T(), first, suite.token)
}

func (suite *AdminHandlerTestSuite) TestMethods() {
	resp, body := suite.request(http.MethodGet, "/api/auth/methods?server="+kintotest.URL, nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), kintotest.URL, body["server"])

	methods, ok := body["methods"].([]interface{})
	require.True(suite.T(), ok)
	require.Len(suite.T(), methods, 2)
	assert.Equal(suite.T(), "anonymous", path(methods[0].(map[string]interface{}), "method"))
	assert.Equal(suite.T(), "basicauth", path(methods[1].(map[string]interface{}), "method"))
}

func (suite *AdminHandlerTestSuite) TestMethods_InvalidServer() {
	resp, body := suite.request(http.MethodGet, "/api/auth/methods?server=nope", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "VALIDATION_ERROR", body["error"])
}

func (suite *AdminHandlerTestSuite) TestSubmit() {
	suite.request(http.MethodGet, "/api/state", nil)
	anonymousToken := suite.token

	suite.login()
	assert.NotEqual(suite.T(), anonymousToken, suite.token)

	resp, body := suite.request(http.MethodGet, "/api/state", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), true, path(body, "session", "authenticated"))
	assert.Equal(suite.T(), "account:tom", path(body, "session", "serverInfo", "user", "id"))
}

func (suite *AdminHandlerTestSuite) TestSubmit_InvalidBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/session", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, body := suite.send(req)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "VALIDATION_ERROR", body["error"])
}

func (suite *AdminHandlerTestSuite) TestSubmit_ExternalRedirect() {
	resp, body := suite.request(http.MethodPost, "/api/auth/session", authmodel.AuthData{
		Server:   kintotest.URL,
		AuthType: authmodel.MethodPortier,
		Email:    "tom@example.com",
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "external", body["kind"])
	redirect, _ := body["redirectTo"].(string)
	assert.True(suite.T(), strings.HasPrefix(redirect, kintotest.URL+"/portier/login?"))
	assert.Equal(suite.T(), redirect, path(body, "state", "session", "redirectURL"))
}

func (suite *AdminHandlerTestSuite) TestCallback() {
	payload, err := authusecase.EncodePayload(authmodel.AuthData{
		Server:   kintotest.URL,
		AuthType: authmodel.MethodPortier,
		Email:    "tom@example.com",
	})
	require.NoError(suite.T(), err)

	resp, _ := suite.request(http.MethodGet, "/api/auth/callback/"+payload+"/tok", nil)
	require.Equal(suite.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(suite.T(), suite.consoleURL+"/", resp.Header.Get("Location"))

	_, body := suite.request(http.MethodGet, "/api/state", nil)
	assert.Equal(suite.T(), true, path(body, "session", "authenticated"))
	assert.Equal(suite.T(), "portier", path(body, "session", "authType"))
}

func (suite *AdminHandlerTestSuite) TestCallback_InvalidPayload() {
	resp, _ := suite.request(http.MethodGet, "/api/auth/callback/garbage/tok", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
}

func (suite *AdminHandlerTestSuite) TestLogout() {
	suite.login()

	resp, body := suite.request(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), false, path(body, "session", "authenticated"))
	assert.Equal(suite.T(), "/", path(body, "route", "path"))
	assert.Contains(suite.T(), strings.ToLower(resp.Header.Get("Set-Cookie")), "1970")
}

func (suite *AdminHandlerTestSuite) TestHistory() {
	suite.login()

	resp, body := suite.request(http.MethodGet, "/api/history", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), []interface{}{kintotest.URL}, body["history"])

	resp, body = suite.request(http.MethodDelete, "/api/history", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), []interface{}{}, body["data"])
}

func (suite *AdminHandlerTestSuite) TestBucketLifecycle() {
	suite.login()

	resp, body := suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{
		"id":   "b1",
		"data": map[string]interface{}{"title": "First"},
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "/buckets/b1/edit", path(body, "route", "path"))
	buckets, _ := body["data"].([]interface{})
	require.Len(suite.T(), buckets, 1)
	assert.Equal(suite.T(), "b1", path(buckets[0].(map[string]interface{}), "id"))

	resp, body = suite.request(http.MethodGet, "/api/buckets/b1", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "First", path(body, "data", "data", "title"))

	resp, body = suite.request(http.MethodPut, "/api/buckets/b1", map[string]interface{}{
		"data": map[string]interface{}{"title": "Renamed"},
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "Renamed", path(body, "data", "data", "title"))

	resp, body = suite.request(http.MethodPut, "/api/buckets/b1", map[string]interface{}{})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "VALIDATION_ERROR", body["error"])

	resp, body = suite.request(http.MethodDelete, "/api/buckets/b1", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "/", path(body, "route", "path"))
	assert.False(suite.T(), suite.srv.Exists("/buckets/b1"))
}

func (suite *AdminHandlerTestSuite) TestCreateBucket_RequiresID() {
	resp, _ := suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"data": map[string]interface{}{}})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
}

func (suite *AdminHandlerTestSuite) TestRemoteFailureIsANotification() {
	// no session set up yet
	resp, body := suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "b1"})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	notifications, _ := body["notifications"].([]interface{})
	require.NotEmpty(suite.T(), notifications)
	last := notifications[len(notifications)-1].(map[string]interface{})
	assert.Equal(suite.T(), "error", last["type"])
	assert.Equal(suite.T(), "Couldn't create bucket.", last["message"])

	resp, body = suite.request(http.MethodDelete, "/api/notifications?force=true", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), []interface{}{}, body["data"])
}

func (suite *AdminHandlerTestSuite) TestCollectionsAndRecords() {
	suite.login()
	suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "b1"})

	resp, body := suite.request(http.MethodPost, "/api/buckets/b1/collections", map[string]interface{}{"id": "c1"})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "/buckets/b1/collections/c1", path(body, "route", "path"))

	resp, _ = suite.request(http.MethodPost, "/api/buckets/b1/collections/c1/records", map[string]interface{}{
		"data": map[string]interface{}{"id": "r1", "rank": 1},
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.True(suite.T(), suite.srv.Exists("/buckets/b1/collections/c1/records/r1"))

	resp, body = suite.request(http.MethodPost, "/api/buckets/b1/collections/c1/records/bulk", map[string]interface{}{
		"records": []map[string]interface{}{{"rank": 2}, {"rank": 3}},
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	notifications, _ := body["notifications"].([]interface{})
	require.NotEmpty(suite.T(), notifications)
	assert.Equal(suite.T(), "2 records created.", notifications[len(notifications)-1].(map[string]interface{})["message"])

	resp, body = suite.request(http.MethodGet, "/api/buckets/b1/collections/c1/records?sort=rank", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	records, _ := path(body, "data", "records").([]interface{})
	require.Len(suite.T(), records, 3)
	assert.Equal(suite.T(), "r1", records[0].(map[string]interface{})["id"])
	assert.Equal(suite.T(), "rank", path(body, "data", "currentSort"))

	resp, body = suite.request(http.MethodGet, "/api/buckets/b1/collections/c1/records/r1", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), float64(1), path(body, "data", "data", "rank"))

	resp, _ = suite.request(http.MethodDelete, "/api/buckets/b1/collections/c1/records/r1?last_modified=abc", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)

	resp, body = suite.request(http.MethodDelete, "/api/buckets/b1/collections/c1/records/r1", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	records, _ = path(body, "data", "records").([]interface{})
	assert.Len(suite.T(), records, 2)
	assert.False(suite.T(), suite.srv.Exists("/buckets/b1/collections/c1/records/r1"))

	resp, _ = suite.request(http.MethodDelete, "/api/buckets/b1/collections/c1", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.False(suite.T(), suite.srv.Exists("/buckets/b1/collections/c1"))
}

func (suite *AdminHandlerTestSuite) TestLoadedCollectionSurvivesLaterRequests() {
	// fiber reuses request buffers unless the app is immutable
	suite.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	suite.handler.RegisterRoutes(suite.app)

	suite.login()
	suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "aaaa"})
	resp, _ := suite.request(http.MethodPost, "/api/buckets/aaaa/collections", map[string]interface{}{"id": "cccc"})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	resp, body := suite.request(http.MethodGet, "/api/buckets/aaaa/collections/cccc", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "aaaa", path(body, "data", "bucket"))

	suite.request(http.MethodGet, "/api/buckets/zzzz/collections/yyyy/records/xxxx", nil)

	resp, body = suite.request(http.MethodGet, "/api/state", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "aaaa", path(body, "collection", "bucket"))
	assert.Equal(suite.T(), "cccc", path(body, "collection", "id"))
	assert.Equal(suite.T(), "aaaa/cccc", path(body, "collection", "label"))
}

func (suite *AdminHandlerTestSuite) TestCreateRecordWithAttachment() {
	suite.login()
	suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "b1"})
	suite.request(http.MethodPost, "/api/buckets/b1/collections", map[string]interface{}{"id": "c1"})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(suite.T(), w.WriteField("data", `{"id":"r1","title":"with file"}`))
	part, err := w.CreateFormFile("attachment", "hello.txt")
	require.NoError(suite.T(), err)
	_, err = part.Write([]byte("hello"))
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/buckets/b1/collections/c1/records", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, _ := suite.send(req)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	data := suite.srv.Data("/buckets/b1/collections/c1/records/r1")
	require.NotNil(suite.T(), data)
	assert.Equal(suite.T(), "with file", data["title"])
	assert.Equal(suite.T(), "hello.txt", path(data, "attachment", "filename"))

	resp, body := suite.request(http.MethodDelete, "/api/buckets/b1/collections/c1/records/r1/attachment", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Nil(suite.T(), path(body, "data", "data", "attachment"))
}

func (suite *AdminHandlerTestSuite) TestGroups() {
	suite.login()
	suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "b1"})

	resp, body := suite.request(http.MethodPost, "/api/buckets/b1/groups", map[string]interface{}{
		"id":      "g1",
		"members": []string{"account:tom"},
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "/buckets/b1/groups/g1/edit", path(body, "route", "path"))

	resp, body = suite.request(http.MethodGet, "/api/buckets/b1/groups/g1", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), []interface{}{"account:tom"}, path(body, "data", "data", "members"))

	resp, body = suite.request(http.MethodGet, "/api/buckets/b1/groups", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	groups, _ := body["data"].([]interface{})
	assert.Len(suite.T(), groups, 1)

	resp, _ = suite.request(http.MethodPost, "/api/buckets/b1/groups", map[string]interface{}{})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)

	resp, _ = suite.request(http.MethodDelete, "/api/buckets/b1/groups/g1", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.False(suite.T(), suite.srv.Exists("/buckets/b1/groups/g1"))
}

func (suite *AdminHandlerTestSuite) TestUpdateRoute() {
	resp, body := suite.request(http.MethodPut, "/api/route", map[string]interface{}{"path": "/buckets/b1"})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "/buckets/b1", path(body, "data", "path"))

	resp, _ = suite.request(http.MethodPut, "/api/route", map[string]interface{}{})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
}

func TestAdminHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerTestSuite))
}
