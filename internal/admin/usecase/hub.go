package usecase

import (
	"context"
	"sync"

	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/shared/logger"

	"go.uber.org/zap"
)

// NotificationHub fans console messages out to the WebSocket subscribers of a session.
type NotificationHub interface {
	// Subscribe registers a channel owned by the subscriber. The caller closes it.
	Subscribe(ctx context.Context, sessionID, subscriberID string, ch chan<- model.Message) error
	Unsubscribe(ctx context.Context, sessionID, subscriberID string) error
	Publish(ctx context.Context, sessionID string, msg model.Message) error
	SubscriberCount(sessionID string) int
}

type notificationHub struct {
	// sessionID -> subscriberID -> channel
	subscriptions map[string]map[string]chan<- model.Message
	mu            sync.RWMutex
	log           logger.Logger
}

// NewNotificationHub creates an empty hub
func NewNotificationHub(log logger.Logger) NotificationHub {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &notificationHub{
		subscriptions: make(map[string]map[string]chan<- model.Message),
		log:           log.WithComponent("notification_hub"),
	}
}

func (h *notificationHub) Subscribe(ctx context.Context, sessionID, subscriberID string, ch chan<- model.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscriptions[sessionID]; !ok {
		h.subscriptions[sessionID] = make(map[string]chan<- model.Message)
	}
	if _, ok := h.subscriptions[sessionID][subscriberID]; ok {
		h.log.Warn("Subscriber already registered, overwriting", zap.String("subscriberID", subscriberID))
	}
	h.subscriptions[sessionID][subscriberID] = ch
	h.log.Info("Client subscribed", zap.String("session_id", sessionID), zap.String("subscriberID", subscriberID))
	return nil
}

func (h *notificationHub) Unsubscribe(ctx context.Context, sessionID, subscriberID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.subscriptions[sessionID]
	if !ok {
		return nil
	}
	if _, ok := subscribers[subscriberID]; !ok {
		h.log.Warn("Subscriber not found during unsubscribe", zap.String("subscriberID", subscriberID))
		return nil
	}
	delete(subscribers, subscriberID)
	if len(subscribers) == 0 {
		delete(h.subscriptions, sessionID)
	}
	h.log.Info("Client unsubscribed", zap.String("session_id", sessionID), zap.String("subscriberID", subscriberID))
	return nil
}

// Publish never blocks: a subscriber whose channel is full misses the message.
func (h *notificationHub) Publish(ctx context.Context, sessionID string, msg model.Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subscribers := h.subscriptions[sessionID]
	if len(subscribers) == 0 {
		return nil
	}
	for subID, ch := range subscribers {
		select {
		case ch <- msg:
		default:
			h.log.Warn("Dropping message for slow subscriber",
				zap.String("subscriberID", subID),
				zap.String("type", string(msg.Type)))
		}
	}
	return nil
}

func (h *notificationHub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[sessionID])
}
