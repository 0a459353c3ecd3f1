package usecase

import (
	"context"
	"sync"
	"testing"

	"kinto-admin/internal/admin/adapter/persistence/memory"
	"kinto-admin/internal/admin/config"
	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/client"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/admin/domain/service"
	authmodel "kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/kinto"
	"kinto-admin/internal/kinto/kintotest"
	"kinto-admin/internal/shared/logger"

	"github.com/stretchr/testify/require"
)

// tom:secret
const testAuthorization = "Basic dG9tOnNlY3JldA=="

var testAuth = authmodel.AuthData{
	Server:      kintotest.URL,
	AuthType:    authmodel.MethodBasicAuth,
	Credentials: &authmodel.Credentials{Username: "tom", Password: "secret"},
}

// recordingDispatcher reduces actions into a store and remembers them, without running sagas
type recordingDispatcher struct {
	mu      sync.Mutex
	store   *Store
	actions []action.Action
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{store: NewStore(model.InitialState(), nil)}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, a action.Action) error {
	d.mu.Lock()
	d.actions = append(d.actions, a)
	d.mu.Unlock()
	d.store.Apply(a)
	return nil
}

func (d *recordingDispatcher) GetState() model.State {
	return d.store.State()
}

func (d *recordingDispatcher) Actions() []action.Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]action.Action(nil), d.actions...)
}

func (d *recordingDispatcher) Types() []action.Type {
	types := []action.Type{}
	for _, a := range d.Actions() {
		types = append(types, a.Type)
	}
	return types
}

func (d *recordingDispatcher) Notifications() []model.Notification {
	out := []model.Notification{}
	for _, a := range d.Actions() {
		if n, ok := a.Payload.(model.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

func (d *recordingDispatcher) Routes() []string {
	out := []string{}
	for _, a := range d.Actions() {
		if a.Type == action.RouteUpdated {
			out = append(out, a.Payload.(string))
		}
	}
	return out
}

func (d *recordingDispatcher) Reset() {
	d.mu.Lock()
	d.actions = nil
	d.mu.Unlock()
}

type fakeSessions struct {
	mu      sync.Mutex
	saved   map[string]authmodel.AuthData
	deleted []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: map[string]authmodel.AuthData{}}
}

func (f *fakeSessions) SaveSession(_ context.Context, sessionID, _ string, data authmodel.AuthData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[sessionID] = data
	return nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionID)
	delete(f.saved, sessionID)
	return nil
}

func testFactory(srv *kintotest.Server) client.Factory {
	return func(server, authorization string) client.RemoteStore {
		return kinto.New(server, kinto.WithDoer(srv.Doer()), kinto.WithAuthorization(authorization))
	}
}

func testDeps(t *testing.T, srv *kintotest.Server) ConsoleDeps {
	filter, err := service.NewRecordFilter()
	require.NoError(t, err)
	return ConsoleDeps{
		Factory:  testFactory(srv),
		Sessions: newFakeSessions(),
		History:  memory.NewHistoryRepository(10),
		Stream:   memory.NewNotificationStream(100),
		Hub:      NewNotificationHub(logger.NewNopLogger()),
		Filter:   filter,
		Config:   config.DefaultAdminConfig(),
		Logger:   logger.NewNopLogger(),
	}
}

func newTestServer(t *testing.T, opts ...kintotest.Option) *kintotest.Server {
	all := append([]kintotest.Option{kintotest.WithAccount(testAuthorization, "account:tom")}, opts...)
	srv := kintotest.NewServer(all...)
	t.Cleanup(srv.Close)
	return srv
}

// newTestCoordinator returns a coordinator already connected as tom
func newTestCoordinator(t *testing.T, opts ...kintotest.Option) (*Coordinator, *recordingDispatcher, *kintotest.Server) {
	srv := newTestServer(t, opts...)
	d := newRecordingDispatcher()
	c := NewCoordinator("session-1", "client-1", d, testDeps(t, srv))
	c.setClient(testAuth)
	return c, d, srv
}

// seeder creates fixtures straight on the fake server
type seeder struct {
	t      *testing.T
	remote client.RemoteStore
}

func seed(t *testing.T, srv *kintotest.Server) seeder {
	return seeder{t: t, remote: testFactory(srv)(kintotest.URL, testAuthorization)}
}

func (s seeder) bucket(bid string) seeder {
	_, err := s.remote.CreateBucket(context.Background(), bid, kinto.Resource{}, nil)
	require.NoError(s.t, err)
	return s
}

func (s seeder) collection(bid, cid string, data kinto.Resource) seeder {
	_, err := s.remote.CreateCollection(context.Background(), bid, cid, data, nil)
	require.NoError(s.t, err)
	return s
}

func (s seeder) record(bid, cid string, data kinto.Resource) kinto.Resource {
	resp, err := s.remote.CreateRecord(context.Background(), bid, cid, data, nil)
	require.NoError(s.t, err)
	return resp.Data
}

func (s seeder) group(bid, gid string, members ...string) seeder {
	_, err := s.remote.CreateGroup(context.Background(), bid, gid, members, kinto.Resource{}, nil)
	require.NoError(s.t, err)
	return s
}
