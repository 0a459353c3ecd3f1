package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kinto-admin/internal/admin/config"
	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/client"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/admin/domain/repository"
	"kinto-admin/internal/admin/domain/service"
	authmodel "kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/kinto"
	apperrors "kinto-admin/internal/shared/errors"
	"kinto-admin/internal/shared/logger"

	"go.uber.org/zap"
)

// ErrNoClient is returned when a remote call is attempted before a session was set up
var ErrNoClient = apperrors.NewAuthenticationError("Client is not configured.").WithCode("no_client")

// Dispatcher applies actions to a console
type Dispatcher interface {
	Dispatch(ctx context.Context, a action.Action) error
	GetState() model.State
}

// SessionStore persists the auth data of console sessions
type SessionStore interface {
	SaveSession(ctx context.Context, sessionID, clientID string, data authmodel.AuthData) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Coordinator runs the sagas of one console: each one marks the console busy,
// calls the remote server, dispatches the outcome and notifies the user.
type Coordinator struct {
	sessionID  string
	clientID   string
	dispatcher Dispatcher
	factory    client.Factory
	sessions   SessionStore
	history    repository.HistoryRepository
	filter     *service.RecordFilter
	cfg        *config.AdminConfig
	log        logger.Logger

	mu     sync.RWMutex
	remote client.RemoteStore
}

// NewCoordinator creates the coordinator of a console session
func NewCoordinator(sessionID, clientID string, dispatcher Dispatcher, deps ConsoleDeps) *Coordinator {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultAdminConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Coordinator{
		sessionID:  sessionID,
		clientID:   clientID,
		dispatcher: dispatcher,
		factory:    deps.Factory,
		sessions:   deps.Sessions,
		history:    deps.History,
		filter:     deps.Filter,
		cfg:        cfg,
		log:        log.WithComponent("coordinator").WithFields(map[string]interface{}{"session_id": sessionID}),
	}
}

func (c *Coordinator) put(ctx context.Context, a action.Action) {
	err := c.dispatcher.Dispatch(ctx, a)
	switch {
	case errors.Is(err, ErrConsoleClosed):
		c.log.Debug("Console closed, action dropped", zap.String("type", string(a.Type)))
	case err != nil:
		c.log.Error("Failed to dispatch action", zap.String("type", string(a.Type)), zap.Error(err))
	}
}

func (c *Coordinator) state() model.State {
	return c.dispatcher.GetState()
}

func (c *Coordinator) setClient(auth authmodel.AuthData) client.RemoteStore {
	remote := c.factory(auth.Server, auth.AuthorizationHeader())
	c.mu.Lock()
	c.remote = remote
	c.mu.Unlock()
	return remote
}

func (c *Coordinator) resetClient() {
	c.mu.Lock()
	c.remote = nil
	c.mu.Unlock()
}

func (c *Coordinator) client() (client.RemoteStore, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.remote == nil {
		return nil, ErrNoClient
	}
	return c.remote, nil
}

// Remote returns the server the console currently talks to, "" when none
func (c *Coordinator) Remote() string {
	remote, err := c.client()
	if err != nil {
		return ""
	}
	return remote.Remote()
}

func (c *Coordinator) pageSize() int {
	if c.cfg.RecordsPageSize > 0 {
		return c.cfg.RecordsPageSize
	}
	return 200
}

func safeWrite(lastModified int64) kinto.WriteOptions {
	return kinto.WriteOptions{Safe: lastModified > 0, LastModified: lastModified}
}

func objectOf(resp *kinto.ObjectResponse) action.Object {
	if resp == nil {
		return action.Object{Data: kinto.Resource{}, Permissions: kinto.Permissions{}}
	}
	return action.Object{Data: resp.Data, Permissions: resp.Permissions}
}

func pageOf(list *kinto.ListResponse, appendEntries bool) action.Page {
	return action.Page{
		Entries:     list.Data,
		HasNextPage: list.HasNextPage(),
		NextPage:    list.NextPage,
		Append:      appendEntries,
	}
}

// withoutKeys copies data without the given attributes
func withoutKeys(data kinto.Resource, keys ...string) kinto.Resource {
	out := kinto.Resource{}
	for k, v := range data {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func collectionPath(bid, cid string) string {
	return fmt.Sprintf("/buckets/%s/collections/%s", bid, cid)
}
