package http

import (
	"context"
	"time"

	"kinto-admin/internal/admin/domain/model"
	authhttp "kinto-admin/internal/auth/adapter/http"
	"kinto-admin/internal/shared/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Messages a WebSocket client may send
const (
	ClientServerChange = "server_change"
	ClientPing         = "ping"
)

// ClientMessage is read from the notification WebSocket
type ClientMessage struct {
	Type   string `json:"type"`
	Server string `json:"server,omitempty"`
}

const wsReadTimeout = 60 * time.Second

func (h *AdminHandler) registerWebSocketRoutes(router fiber.Router) {
	path := h.cfg.Realtime.WebSocketPath
	router.Use(path,
		h.middleware.ClientID(),
		h.middleware.Protect(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				c.Locals("allowed", true)
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	router.Get(path, websocket.New(h.handleNotifications))
}

// handleNotifications replays the notifications the client missed, then
// pushes every console message of the session until the client leaves.
// ?last_id= is the stream id of the last notification the client saw.
func (h *AdminHandler) handleNotifications(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionID, _ := conn.Locals(authhttp.LocalSessionID).(string)
	clientID, _ := conn.Locals(authhttp.LocalClientID).(string)
	subscriberID := uuid.NewString()
	log := h.log.WithFields(map[string]interface{}{"session_id": sessionID, "subscriberID": subscriberID})

	if _, err := h.admin.Console(ctx, sessionID, clientID); err != nil {
		h.sendError(conn, err.Error())
		return
	}

	hub := h.admin.Hub()
	messages := make(chan model.Message, h.cfg.Realtime.ClientSendChannelBuffer)
	if err := hub.Subscribe(ctx, sessionID, subscriberID, messages); err != nil {
		log.Error("Failed to subscribe", zap.Error(err))
		h.sendError(conn, "Failed to subscribe to notifications")
		return
	}
	defer func() {
		if err := hub.Unsubscribe(context.Background(), sessionID, subscriberID); err != nil {
			log.Error("Failed to unsubscribe", zap.Error(err))
		}
	}()
	log.Info("Notification WebSocket connected")

	entries, err := h.admin.NotificationsSince(ctx, sessionID, conn.Query("last_id"))
	if err != nil {
		log.Warn("Failed to replay notifications", zap.Error(err))
	}
	for _, e := range entries {
		msg := model.Message{Type: model.MessageNotification, Data: e.Notification, StreamID: e.ID, Timestamp: e.Notification.Time}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	debouncer := utils.NewDebouncer(h.cfg.Realtime.ServerChangeDebounce)
	defer debouncer.Stop()

	replies := make(chan model.Message, 1)
	go h.readClientMessages(ctx, cancel, conn, sessionID, clientID, debouncer, replies)

	for {
		var msg model.Message
		select {
		case <-ctx.Done():
			log.Info("Notification WebSocket closed")
			return
		case msg = <-messages:
		case msg = <-replies:
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Warn("Failed to write message", zap.Error(err))
			return
		}
	}
}

// readClientMessages handles client messages until the connection fails,
// then cancels ctx. It never writes to conn.
func (h *AdminHandler) readClientMessages(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	sessionID, clientID string,
	debouncer *utils.Debouncer,
	replies chan<- model.Message,
) {
	defer cancel()
	for {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("WebSocket read failed", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case ClientServerChange:
			server := msg.Server
			debouncer.Call(func() {
				if err := h.admin.ServerChanged(context.Background(), sessionID, clientID, server); err != nil {
					h.log.Warn("Server change failed", zap.String("server", server), zap.Error(err))
				}
			})
		case ClientPing:
			h.reply(ctx, replies, model.Message{Type: model.MessagePong, Timestamp: time.Now().UTC()})
		default:
			h.reply(ctx, replies, model.Message{Type: model.MessageError, Data: "Unknown message type: " + msg.Type, Timestamp: time.Now().UTC()})
		}
	}
}

func (h *AdminHandler) reply(ctx context.Context, replies chan<- model.Message, msg model.Message) {
	select {
	case replies <- msg:
	case <-ctx.Done():
	}
}

func (h *AdminHandler) sendError(conn *websocket.Conn, message string) {
	conn.WriteJSON(model.Message{Type: model.MessageError, Data: message, Timestamp: time.Now().UTC()})
}
