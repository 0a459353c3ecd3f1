package http_test

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	adminhttp "kinto-admin/internal/admin/adapter/http"
	"kinto-admin/internal/admin/domain/model"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsMessage keeps Data raw: its shape depends on Type
type wsMessage struct {
	Type     model.MessageType `json:"type"`
	Data     json.RawMessage   `json:"data"`
	StreamID string            `json:"streamId"`
}

func (suite *AdminHandlerTestSuite) notificationOf(msg wsMessage) model.Notification {
	require.Equal(suite.T(), model.MessageNotification, msg.Type)
	var n model.Notification
	require.NoError(suite.T(), json.Unmarshal(msg.Data, &n))
	return n
}

func (suite *AdminHandlerTestSuite) dialNotifications(query string) *websocket.Conn {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(suite.T(), err)
	go func() {
		_ = suite.app.Listener(ln)
	}()
	suite.T().Cleanup(func() { _ = suite.app.Shutdown() })

	url := fmt.Sprintf("ws://%s/ws/notifications?%s", ln.Addr().String(), query)
	var conn *websocket.Conn
	require.Eventually(suite.T(), func() bool {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	suite.T().Cleanup(func() { conn.Close() })
	return conn
}

func (suite *AdminHandlerTestSuite) readMessage(conn *websocket.Conn) wsMessage {
	require.NoError(suite.T(), conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(suite.T(), conn.ReadJSON(&msg))
	return msg
}

func (suite *AdminHandlerTestSuite) TestNotificationsWebSocket() {
	// creating a bucket without a server fails with a notification
	resp, _ := suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "b1"})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	require.NotEmpty(suite.T(), suite.token)

	conn := suite.dialNotifications("token=" + suite.token)

	replayed := suite.readMessage(conn)
	assert.Equal(suite.T(), "Couldn't create bucket.", suite.notificationOf(replayed).Message)
	assert.NotEmpty(suite.T(), replayed.StreamID)

	require.NoError(suite.T(), conn.WriteJSON(adminhttp.ClientMessage{Type: adminhttp.ClientPing}))
	assert.Equal(suite.T(), model.MessagePong, suite.readMessage(conn).Type)

	require.NoError(suite.T(), conn.WriteJSON(adminhttp.ClientMessage{Type: "shout"}))
	unknown := suite.readMessage(conn)
	assert.Equal(suite.T(), model.MessageError, unknown.Type)
	var reason string
	require.NoError(suite.T(), json.Unmarshal(unknown.Data, &reason))
	assert.Equal(suite.T(), "Unknown message type: shout", reason)

	// live notifications follow the replay
	suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "b2"})
	for {
		msg := suite.readMessage(conn)
		if msg.Type != model.MessageNotification {
			continue
		}
		assert.Equal(suite.T(), "Couldn't create bucket.", suite.notificationOf(msg).Message)
		assert.NotEqual(suite.T(), replayed.StreamID, msg.StreamID)
		break
	}
}

func (suite *AdminHandlerTestSuite) TestNotificationsWebSocket_ReplaysAfterLastID() {
	suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "b1"})
	_, body := suite.request(http.MethodGet, "/api/state", nil)
	require.NotEmpty(suite.T(), body["notifications"])

	first := suite.dialNotifications("token=" + suite.token)
	seen := suite.readMessage(first)
	require.NoError(suite.T(), first.Close())

	suite.request(http.MethodPost, "/api/buckets", map[string]interface{}{"id": "b2"})

	url := first.RemoteAddr().String()
	conn, _, err := websocket.DefaultDialer.Dial(
		fmt.Sprintf("ws://%s/ws/notifications?token=%s&last_id=%s", url, suite.token, seen.StreamID), nil)
	require.NoError(suite.T(), err)
	defer conn.Close()

	msg := suite.readMessage(conn)
	assert.Equal(suite.T(), model.MessageNotification, msg.Type)
	assert.NotEqual(suite.T(), seen.StreamID, msg.StreamID)
}

func (suite *AdminHandlerTestSuite) TestNotificationsWebSocket_RequiresToken() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(suite.T(), err)
	go func() {
		_ = suite.app.Listener(ln)
	}()
	defer suite.app.Shutdown()

	url := fmt.Sprintf("ws://%s/ws/notifications", ln.Addr().String())
	var resp *http.Response
	require.Eventually(suite.T(), func() bool {
		_, resp, err = websocket.DefaultDialer.Dial(url, nil)
		return resp != nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
}
