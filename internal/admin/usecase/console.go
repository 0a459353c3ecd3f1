package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kinto-admin/internal/admin/config"
	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/client"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/admin/domain/repository"
	"kinto-admin/internal/admin/domain/service"
	"kinto-admin/internal/shared/eventbus"
	"kinto-admin/internal/shared/logger"

	"go.uber.org/zap"
)

// ErrConsoleClosed is returned by Dispatch once the console was closed
var ErrConsoleClosed = errors.New("console closed")

// ConsoleDeps are the collaborators shared by every console
type ConsoleDeps struct {
	Factory  client.Factory
	Sessions SessionStore
	History  repository.HistoryRepository
	Stream   repository.NotificationStream
	Hub      NotificationHub
	Filter   *service.RecordFilter
	Config   *config.AdminConfig
	Logger   logger.Logger
}

// Console is the admin console of one browser session: a store reduced by
// actions, and sagas watching the request actions published on its bus.
type Console struct {
	id          string
	clientID    string
	store       *Store
	bus         *eventbus.EventBus
	coordinator *Coordinator
	stream      repository.NotificationStream
	hub         NotificationHub
	log         logger.Logger

	mu         sync.Mutex
	lastActive time.Time
}

// NewConsole creates a console and starts watching request actions
func NewConsole(sessionID, clientID string, deps ConsoleDeps) *Console {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &Console{
		id:         sessionID,
		clientID:   clientID,
		store:      NewStore(model.InitialState(), Reduce),
		bus:        eventbus.NewEventBus(log),
		stream:     deps.Stream,
		hub:        deps.Hub,
		log:        log.WithComponent("console").WithFields(map[string]interface{}{"session_id": sessionID}),
		lastActive: time.Now(),
	}
	c.coordinator = NewCoordinator(sessionID, clientID, c, deps)

	for t, saga := range c.coordinator.Sagas() {
		c.bus.Subscribe(string(t), c.watch(t, saga))
	}
	c.bus.Subscribe(string(action.NotificationAdded), c.forwardNotification)
	c.bus.Subscribe(string(action.RouteUpdated), c.forwardRoute)
	c.bus.Subscribe(string(action.SessionServerInfoSuccess), c.forwardServerInfo)
	return c
}

// ID returns the console session id
func (c *Console) ID() string { return c.id }

// ClientID returns the browser client id the console belongs to
func (c *Console) ClientID() string { return c.clientID }

// Coordinator returns the sagas of the console
func (c *Console) Coordinator() *Coordinator { return c.coordinator }

// GetState returns the current console state
func (c *Console) GetState() model.State {
	return c.store.State()
}

// Dispatch reduces a into the state then publishes it. Request actions run
// their saga before Dispatch returns.
func (c *Console) Dispatch(ctx context.Context, a action.Action) error {
	c.touch()
	c.store.Apply(a)
	c.log.Debug("Action dispatched", zap.String("type", string(a.Type)))

	if err := c.bus.Publish(ctx, eventbus.NewEvent(string(a.Type), a, c.id)); err != nil {
		if errors.Is(err, eventbus.ErrClosed) {
			return ErrConsoleClosed
		}
		return fmt.Errorf("dispatch %s: %w", a.Type, err)
	}
	return nil
}

// Subscribe observes the actions of the given type; eventbus.WildcardType observes all.
func (c *Console) Subscribe(eventType string, handler eventbus.Handler) {
	c.bus.Subscribe(eventType, handler)
}

// LastActive returns when the console last dispatched an action
func (c *Console) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Console) touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

// Close stops every watcher and forgets the remote client
func (c *Console) Close() {
	c.bus.Close()
	c.coordinator.resetClient()
}

// watch runs saga for each action of type t, one at a time
func (c *Console) watch(t action.Type, saga Saga) eventbus.Handler {
	var running sync.Mutex
	return func(ctx context.Context, ev eventbus.Event) error {
		a, ok := ev.Data().(action.Action)
		if !ok {
			return fmt.Errorf("unexpected event data %T", ev.Data())
		}
		running.Lock()
		defer running.Unlock()

		c.log.Debug("Running saga", zap.String("type", string(t)))
		return saga(ctx, a)
	}
}

func (c *Console) forwardNotification(ctx context.Context, ev eventbus.Event) error {
	a, _ := ev.Data().(action.Action)
	n, ok := a.Payload.(model.Notification)
	if !ok {
		return nil
	}
	var streamID string
	if c.stream != nil {
		id, err := c.stream.Append(ctx, c.id, n)
		if err != nil {
			c.log.Warn("Failed to append notification to stream", zap.Error(err))
		}
		streamID = id
	}
	c.publish(ctx, model.Message{Type: model.MessageNotification, Data: n, StreamID: streamID})
	return nil
}

func (c *Console) forwardRoute(ctx context.Context, ev eventbus.Event) error {
	c.publish(ctx, model.Message{Type: model.MessageRoute, Data: c.GetState().Route})
	return nil
}

func (c *Console) forwardServerInfo(ctx context.Context, ev eventbus.Event) error {
	c.publish(ctx, model.Message{Type: model.MessageServerInfo, Data: c.GetState().Session.ServerInfo})
	return nil
}

func (c *Console) publish(ctx context.Context, msg model.Message) {
	if c.hub == nil {
		return
	}
	msg.Timestamp = time.Now().UTC()
	if err := c.hub.Publish(ctx, c.id, msg); err != nil {
		c.log.Warn("Failed to publish console message", zap.Error(err))
	}
}
