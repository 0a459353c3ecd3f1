package memory

import (
	"context"
	"strconv"
	"sync"

	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/admin/domain/repository"
)

// NotificationStream keeps the last notifications of each session in memory.
// Entry ids are increasing decimal numbers.
type NotificationStream struct {
	mu      sync.Mutex
	streams map[string][]repository.StreamEntry
	seq     int64
	maxLen  int
}

// NewNotificationStream creates a stream store keeping maxLen entries per session
func NewNotificationStream(maxLen int) *NotificationStream {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &NotificationStream{streams: make(map[string][]repository.StreamEntry), maxLen: maxLen}
}

func (s *NotificationStream) Append(_ context.Context, sessionID string, n model.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := strconv.FormatInt(s.seq, 10)
	entries := append(s.streams[sessionID], repository.StreamEntry{ID: id, Notification: n})
	if len(entries) > s.maxLen {
		entries = entries[len(entries)-s.maxLen:]
	}
	s.streams[sessionID] = entries
	return id, nil
}

// Since returns the entries after lastID; an empty lastID returns them all
func (s *NotificationStream) Since(_ context.Context, sessionID, lastID string) ([]repository.StreamEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var after int64
	if lastID != "" {
		n, err := strconv.ParseInt(lastID, 10, 64)
		if err != nil {
			return nil, err
		}
		after = n
	}
	out := []repository.StreamEntry{}
	for _, e := range s.streams[sessionID] {
		n, _ := strconv.ParseInt(e.ID, 10, 64)
		if n > after {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *NotificationStream) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, sessionID)
	return nil
}
