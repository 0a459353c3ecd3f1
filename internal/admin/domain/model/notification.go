package model

import "time"

// NotificationType is the severity of a notification
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationInfo    NotificationType = "info"
	NotificationError   NotificationType = "error"
)

// Notification is a message shown to the console user
type Notification struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	Details    []string         `json:"details,omitempty"`
	Persistent bool             `json:"persistent"`
	Time       time.Time        `json:"time"`
}

// NotifyOptions tune a notification
type NotifyOptions struct {
	Persistent bool
	Details    []string
}
