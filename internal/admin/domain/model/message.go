package model

import "time"

// MessageType is the kind of a message pushed to console subscribers
type MessageType string

const (
	MessageNotification MessageType = "notification"
	MessageRoute        MessageType = "route"
	MessageServerInfo   MessageType = "server_info"
	MessageError        MessageType = "error"
	MessagePong         MessageType = "pong"
)

// Message is pushed to the WebSocket subscribers of a console session
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data"`
	StreamID  string      `json:"streamId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
