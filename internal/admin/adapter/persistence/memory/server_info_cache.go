package memory

import (
	"context"
	"sync"
	"time"

	"kinto-admin/internal/kinto"
)

type cachedInfo struct {
	info    kinto.ServerInfo
	expires time.Time
}

// ServerInfoCache keeps server info documents in memory until they expire
type ServerInfoCache struct {
	mu      sync.RWMutex
	entries map[string]cachedInfo
	now     func() time.Time
}

// NewServerInfoCache creates an empty cache
func NewServerInfoCache() *ServerInfoCache {
	return &ServerInfoCache{entries: make(map[string]cachedInfo), now: time.Now}
}

func (c *ServerInfoCache) Get(_ context.Context, server string) (kinto.ServerInfo, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[server]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		return kinto.ServerInfo{}, false, nil
	}
	return entry.info, true, nil
}

func (c *ServerInfoCache) Set(_ context.Context, server string, info kinto.ServerInfo, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[server] = cachedInfo{info: info, expires: c.now().Add(ttl)}
	return nil
}

func (c *ServerInfoCache) Invalidate(_ context.Context, server string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, server)
	return nil
}
