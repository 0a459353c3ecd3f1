package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/admin/domain/repository"
	"kinto-admin/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	streamKeyPrefix = "kinto-admin:notifications:"
	replayCount     = 1000
)

// RedisNotificationStream keeps the notifications of each session in a Redis Stream,
// so reconnecting WebSocket clients can replay what they missed.
type RedisNotificationStream struct {
	client *redis.Client
	maxLen int64
	logger logger.Logger
}

// NewRedisNotificationStream creates a stream store capping each stream at maxLen entries
func NewRedisNotificationStream(client *redis.Client, maxLen int64, log logger.Logger) *RedisNotificationStream {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisNotificationStream{
		client: client,
		maxLen: maxLen,
		logger: log.WithComponent("notification_stream"),
	}
}

func streamKey(sessionID string) string {
	return streamKeyPrefix + sessionID
}

// Append stores a notification and returns its stream entry id
func (s *RedisNotificationStream) Append(ctx context.Context, sessionID string, n model.Notification) (string, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("Failed to serialize notification", zap.Error(err))
		return "", err
	}

	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(sessionID),
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":         string(n.Type),
			"notification": payload,
		},
	}).Result()
	if err != nil {
		s.logger.Error("Failed to append notification",
			zap.String("session_id", sessionID),
			zap.String("type", string(n.Type)),
			zap.Error(err))
		return "", err
	}

	s.logger.Debug("Notification appended",
		zap.String("session_id", sessionID),
		zap.String("entry_id", id))
	return id, nil
}

// Since returns the entries stored after lastID, or the whole stream when lastID is empty
func (s *RedisNotificationStream) Since(ctx context.Context, sessionID, lastID string) ([]repository.StreamEntry, error) {
	start := "-"
	if lastID != "" {
		start = "(" + lastID
	}

	msgs, err := s.client.XRangeN(ctx, streamKey(sessionID), start, "+", replayCount).Result()
	if err != nil {
		if err == redis.Nil {
			return []repository.StreamEntry{}, nil
		}
		s.logger.Error("Failed to read notifications",
			zap.String("session_id", sessionID),
			zap.String("last_id", lastID),
			zap.Error(err))
		return nil, err
	}

	entries := make([]repository.StreamEntry, 0, len(msgs))
	for _, msg := range msgs {
		n, err := parseNotification(msg)
		if err != nil {
			s.logger.Warn("Failed to parse notification from Redis message",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}
		entries = append(entries, repository.StreamEntry{ID: msg.ID, Notification: n})
	}
	return entries, nil
}

// Delete drops the stream of a session
func (s *RedisNotificationStream) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, streamKey(sessionID)).Err()
}

func parseNotification(msg redis.XMessage) (model.Notification, error) {
	var n model.Notification
	raw, ok := msg.Values["notification"]
	if !ok {
		return n, fmt.Errorf("missing notification field")
	}
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return n, fmt.Errorf("unexpected notification field type %T", raw)
	}
	err := json.Unmarshal(data, &n)
	return n, err
}
