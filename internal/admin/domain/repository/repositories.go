package repository

import (
	"context"
	"time"

	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/kinto"
)

// HistoryRepository stores the servers a client connected to, most recent first
type HistoryRepository interface {
	Get(ctx context.Context, clientID string) ([]string, error)
	Add(ctx context.Context, clientID, server string) ([]string, error)
	Clear(ctx context.Context, clientID string) error
}

// StreamEntry is a notification read back from a session stream
type StreamEntry struct {
	ID           string             `json:"id"`
	Notification model.Notification `json:"notification"`
}

// NotificationStream is the per-session log of notifications
type NotificationStream interface {
	Append(ctx context.Context, sessionID string, n model.Notification) (string, error)
	Since(ctx context.Context, sessionID, lastID string) ([]StreamEntry, error)
	Delete(ctx context.Context, sessionID string) error
}

// ServerInfoCache keeps server info documents for a while
type ServerInfoCache interface {
	Get(ctx context.Context, server string) (kinto.ServerInfo, bool, error)
	Set(ctx context.Context, server string, info kinto.ServerInfo, ttl time.Duration) error
	Invalidate(ctx context.Context, server string) error
}
