package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"kinto-admin/internal/admin/config"
	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/admin/domain/repository"
	authmodel "kinto-admin/internal/auth/domain/model"
	authusecase "kinto-admin/internal/auth/usecase"
	"kinto-admin/internal/kinto"
	apperrors "kinto-admin/internal/shared/errors"
	"kinto-admin/internal/shared/logger"

	"go.uber.org/zap"
)

// MethodsResult lists the authentication methods a server supports
type MethodsResult struct {
	Server     string                 `json:"server"`
	Methods    []authmodel.MethodInfo `json:"methods"`
	ServerInfo kinto.ServerInfo       `json:"serverInfo"`
	History    []string               `json:"history"`
}

// AdminUsecaseInterface is what the console HTTP surface needs
type AdminUsecaseInterface interface {
	Console(ctx context.Context, sessionID, clientID string) (*Console, error)
	Dispatch(ctx context.Context, sessionID, clientID string, a action.Action) (model.State, error)
	State(ctx context.Context, sessionID, clientID string) (model.State, error)

	Probe(ctx context.Context, server string) (kinto.ServerInfo, error)
	Methods(ctx context.Context, clientID, server string) (*MethodsResult, error)
	Submit(ctx context.Context, sessionID, clientID string, data authmodel.AuthData) (*authmodel.SubmitDecision, model.State, error)
	CompleteLogin(ctx context.Context, sessionID, clientID, payload, token string) (model.State, error)
	Logout(ctx context.Context, sessionID, clientID string) (model.State, error)
	ServerChanged(ctx context.Context, sessionID, clientID, server string) error

	History(ctx context.Context, clientID string) ([]string, error)
	NotificationsSince(ctx context.Context, sessionID, lastID string) ([]repository.StreamEntry, error)
	Hub() NotificationHub
}

// AdminUsecase keeps one console per session and drives them
type AdminUsecase struct {
	deps  ConsoleDeps
	auth  authusecase.AuthUsecaseInterface
	cache repository.ServerInfoCache
	cfg   *config.AdminConfig
	log   logger.Logger

	mu       sync.Mutex
	consoles map[string]*Console
	stop     chan struct{}
	stopOnce sync.Once
}

// NewAdminUsecase creates the console registry
func NewAdminUsecase(deps ConsoleDeps, auth authusecase.AuthUsecaseInterface, cache repository.ServerInfoCache) *AdminUsecase {
	if deps.Config == nil {
		deps.Config = config.DefaultAdminConfig()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Hub == nil {
		deps.Hub = NewNotificationHub(deps.Logger)
	}
	return &AdminUsecase{
		deps:     deps,
		auth:     auth,
		cache:    cache,
		cfg:      deps.Config,
		log:      deps.Logger.WithComponent("admin_usecase"),
		consoles: make(map[string]*Console),
		stop:     make(chan struct{}),
	}
}

// Hub returns the hub WebSocket subscribers register with
func (u *AdminUsecase) Hub() NotificationHub {
	return u.deps.Hub
}

// Console returns the console of a session, creating it when needed. A new
// console loads the client server history and restores the stored session.
func (u *AdminUsecase) Console(ctx context.Context, sessionID, clientID string) (*Console, error) {
	if sessionID == "" {
		return nil, apperrors.NewAuthenticationError("Missing console session").WithCause(apperrors.ErrSessionNotFound)
	}

	u.mu.Lock()
	console, ok := u.consoles[sessionID]
	if !ok {
		console = NewConsole(sessionID, clientID, u.deps)
		u.consoles[sessionID] = console
	}
	u.mu.Unlock()
	if ok {
		return console, nil
	}

	u.log.Info("Console created", zap.String("session_id", sessionID))
	console.Coordinator().LoadServerHistory(ctx)
	u.restore(ctx, console)
	return console, nil
}

func (u *AdminUsecase) restore(ctx context.Context, console *Console) {
	if u.auth == nil {
		return
	}
	_, data, err := u.auth.LoadSession(ctx, console.ID())
	if err != nil {
		if !authusecase.IsSessionMissing(err) {
			u.log.Warn("Failed to restore session", zap.String("session_id", console.ID()), zap.Error(err))
		}
		return
	}
	u.log.Info("Restoring session", zap.String("session_id", console.ID()), zap.String("server", data.Server))
	if err := console.Dispatch(ctx, action.SetupSession(data)); err != nil {
		u.log.Warn("Failed to restore session", zap.Error(err))
	}
}

// RestoreSessions rebuilds the consoles of every stored session
func (u *AdminUsecase) RestoreSessions(ctx context.Context) (int, error) {
	if u.auth == nil {
		return 0, nil
	}
	sessions, err := u.auth.ActiveSessions(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range sessions {
		if _, err := u.Console(ctx, s.ID, s.ClientID); err != nil {
			u.log.Warn("Failed to restore console", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
	return len(sessions), nil
}

// Dispatch applies an action to a session console and returns the resulting
// state. A console closed by eviction between lookup and dispatch is replaced
// once.
func (u *AdminUsecase) Dispatch(ctx context.Context, sessionID, clientID string, a action.Action) (model.State, error) {
	for attempt := 0; ; attempt++ {
		console, err := u.Console(ctx, sessionID, clientID)
		if err != nil {
			return model.State{}, err
		}
		err = console.Dispatch(ctx, a)
		if errors.Is(err, ErrConsoleClosed) && attempt == 0 {
			u.drop(sessionID, console)
			continue
		}
		return console.GetState(), err
	}
}

// drop unregisters console if it is still the one registered for sessionID
func (u *AdminUsecase) drop(sessionID string, console *Console) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.consoles[sessionID] == console {
		delete(u.consoles, sessionID)
	}
}

// State returns the state of a session console
func (u *AdminUsecase) State(ctx context.Context, sessionID, clientID string) (model.State, error) {
	console, err := u.Console(ctx, sessionID, clientID)
	if err != nil {
		return model.State{}, err
	}
	return console.GetState(), nil
}

// Probe fetches the server info anonymously, through the cache when configured
func (u *AdminUsecase) Probe(ctx context.Context, server string) (kinto.ServerInfo, error) {
	if u.cache != nil {
		info, ok, err := u.cache.Get(ctx, server)
		if err != nil {
			u.log.Warn("Server info cache read failed", zap.Error(err))
		} else if ok {
			return info, nil
		}
	}

	info, err := u.deps.Factory(server, "").FetchServerInfo(ctx)
	if err != nil {
		return kinto.DefaultServerInfo(), kinto.ToAppError(err)
	}
	// user is specific to the caller, never cache it
	info.User = nil
	if u.cache != nil {
		if err := u.cache.Set(ctx, server, info, u.cfg.ServerInfoTTL); err != nil {
			u.log.Warn("Server info cache write failed", zap.Error(err))
		}
	}
	return info, nil
}

// Methods lists the authentication methods of server, or of the preferred
// server of the client when server is empty.
func (u *AdminUsecase) Methods(ctx context.Context, clientID, server string) (*MethodsResult, error) {
	history, err := u.History(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if server == "" {
		server = u.auth.ServerByPriority(history)
	}
	if err := u.auth.ValidateServerURL(server); err != nil {
		return nil, err
	}
	info, err := u.Probe(ctx, server)
	if err != nil {
		return nil, err
	}

	methods := u.auth.SupportedMethods(info)
	result := &MethodsResult{
		Server:     server,
		Methods:    make([]authmodel.MethodInfo, 0, len(methods)),
		ServerInfo: info,
		History:    history,
	}
	for _, m := range methods {
		result.Methods = append(result.Methods, authmodel.MethodInfo{Method: m, Label: m.Label()})
	}
	return result, nil
}

// Submit handles the login form: the session is set up right away, or the
// console is told where to redirect the browser for external methods.
func (u *AdminUsecase) Submit(ctx context.Context, sessionID, clientID string, data authmodel.AuthData) (*authmodel.SubmitDecision, model.State, error) {
	data = u.auth.NormalizeAuthData(data)
	if err := u.auth.ValidateServerURL(data.Server); err != nil {
		return nil, model.State{}, err
	}

	info, err := u.Probe(ctx, data.Server)
	if err != nil && data.AuthType == authmodel.MethodOpenID {
		return nil, model.State{}, err
	}
	decision, err := u.auth.Resolve(data, info)
	if err != nil {
		return nil, model.State{}, err
	}

	console, err := u.Console(ctx, sessionID, clientID)
	if err != nil {
		return nil, model.State{}, err
	}
	switch decision.Kind {
	case authmodel.DecisionSetup:
		err = console.Dispatch(ctx, action.SetupSession(decision.AuthData))
	default:
		err = console.Dispatch(ctx, action.Redirect(decision.RedirectTo))
	}
	return decision, console.GetState(), err
}

// CompleteLogin sets up the session of an external login callback
func (u *AdminUsecase) CompleteLogin(ctx context.Context, sessionID, clientID, payload, token string) (model.State, error) {
	data, err := u.auth.CompleteExternal(payload, token)
	if err != nil {
		return model.State{}, err
	}
	return u.Dispatch(ctx, sessionID, clientID, action.SetupSession(data))
}

// Logout logs the session console out
func (u *AdminUsecase) Logout(ctx context.Context, sessionID, clientID string) (model.State, error) {
	return u.Dispatch(ctx, sessionID, clientID, action.Logout())
}

// ServerChanged resets the server info of an unauthenticated console and
// probes the new server.
func (u *AdminUsecase) ServerChanged(ctx context.Context, sessionID, clientID, server string) error {
	console, err := u.Console(ctx, sessionID, clientID)
	if err != nil {
		return err
	}
	if console.GetState().Session.Authenticated {
		return nil
	}
	if err := console.Dispatch(ctx, action.ServerChange()); err != nil {
		return err
	}
	if u.auth.ValidateServerURL(server) != nil {
		return nil
	}
	return console.Dispatch(ctx, action.GetServerInfo(authmodel.AnonymousAuthData(server)))
}

// History returns the servers a client connected to, most recent first
func (u *AdminUsecase) History(ctx context.Context, clientID string) ([]string, error) {
	if u.deps.History == nil || clientID == "" {
		return []string{}, nil
	}
	return u.deps.History.Get(ctx, clientID)
}

// NotificationsSince returns the notifications of a session after lastID
func (u *AdminUsecase) NotificationsSince(ctx context.Context, sessionID, lastID string) ([]repository.StreamEntry, error) {
	if u.deps.Stream == nil {
		return []repository.StreamEntry{}, nil
	}
	return u.deps.Stream.Since(ctx, sessionID, lastID)
}

// Forget closes the console of a session
func (u *AdminUsecase) Forget(ctx context.Context, sessionID string) {
	u.mu.Lock()
	console, ok := u.consoles[sessionID]
	delete(u.consoles, sessionID)
	u.mu.Unlock()
	if !ok {
		return
	}
	console.Close()
	if u.deps.Stream != nil {
		if err := u.deps.Stream.Delete(ctx, sessionID); err != nil {
			u.log.Warn("Failed to delete notification stream", zap.Error(err))
		}
	}
}

// EvictIdle closes consoles inactive for longer than the idle timeout. Their
// stored sessions are kept, so they come back on the next request.
func (u *AdminUsecase) EvictIdle(now time.Time) int {
	timeout := u.cfg.ConsoleIdleTimeout
	if timeout <= 0 {
		return 0
	}

	u.mu.Lock()
	var idle []*Console
	for id, c := range u.consoles {
		if now.Sub(c.LastActive()) > timeout && u.deps.Hub.SubscriberCount(id) == 0 {
			idle = append(idle, c)
			delete(u.consoles, id)
		}
	}
	u.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		u.log.Info("Evicted idle consoles", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// ConsoleCount returns the number of live consoles
func (u *AdminUsecase) ConsoleCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.consoles)
}

// StartJanitor evicts idle consoles every interval until Stop is called
func (u *AdminUsecase) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				u.EvictIdle(now)
			case <-u.stop:
				return
			}
		}
	}()
}

// Stop stops the janitor and closes every console
func (u *AdminUsecase) Stop() {
	u.stopOnce.Do(func() { close(u.stop) })

	u.mu.Lock()
	consoles := u.consoles
	u.consoles = make(map[string]*Console)
	u.mu.Unlock()
	for _, c := range consoles {
		c.Close()
	}
}
