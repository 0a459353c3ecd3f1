package config

import (
	"errors"
	"net"
	"time"

	"github.com/caarlos0/env/v6"
)

// RealtimeConfig holds configuration of the notification WebSocket.
type RealtimeConfig struct {
	// WebSocketPath is the endpoint path for notification streams.
	WebSocketPath string `env:"WEBSOCKET_PATH" envDefault:"/ws/notifications" json:"websocket_path"`

	// ClientSendChannelBuffer is the buffer of the channel feeding one WebSocket client.
	ClientSendChannelBuffer int `env:"CLIENT_SEND_CHANNEL_BUFFER" envDefault:"32" json:"client_send_channel_buffer"`

	// ServerChangeDebounce delays server info probes while the server URL is being typed.
	ServerChangeDebounce time.Duration `env:"SERVER_CHANGE_DEBOUNCE" envDefault:"500ms" json:"server_change_debounce"`
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Host            string `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime time.Duration `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime time.Duration `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
	// StreamMaxLength caps each notification stream
	StreamMaxLength int64 `env:"REDIS_STREAM_MAX_LENGTH" envDefault:"1000"`
}

// GetAddr returns host:port
func (c *RedisConfig) GetAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AdminConfig holds all configuration for the admin module.
type AdminConfig struct {
	// MongoDBURI enables MongoDB storage of sessions and server history when set.
	MongoDBURI   string `env:"MONGODB_URI"`
	DatabaseName string `env:"MONGODB_DATABASE" envDefault:"kinto_admin"`

	// RedisEnabled switches the notification stream and server info cache to Redis.
	RedisEnabled bool        `env:"REDIS_ENABLED" envDefault:"false"`
	Redis        RedisConfig `json:"redis"`

	// RemoteTimeout bounds each call to a Kinto server.
	RemoteTimeout time.Duration `env:"KINTO_REQUEST_TIMEOUT" envDefault:"15s"`

	// HistoryLimit is the number of servers remembered per client.
	HistoryLimit int `env:"SERVER_HISTORY_LIMIT" envDefault:"10"`

	// ServerInfoTTL is how long capabilities stay cached.
	ServerInfoTTL time.Duration `env:"SERVER_INFO_TTL" envDefault:"5m"`

	// RecordsPageSize is the number of records fetched per page.
	RecordsPageSize int `env:"RECORDS_PAGE_SIZE" envDefault:"200"`

	// ConsoleIdleTimeout evicts in-memory consoles not used for that long.
	ConsoleIdleTimeout time.Duration `env:"CONSOLE_IDLE_TIMEOUT" envDefault:"1h"`

	Realtime RealtimeConfig `json:"realtime"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*AdminConfig, error) {
	cfg := &AdminConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load admin configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Redis); err != nil {
		return nil, errors.New("failed to load redis configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Realtime); err != nil {
		return nil, errors.New("failed to load realtime configuration from environment: " + err.Error())
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *AdminConfig) applyDefaults() {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 10
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = 15 * time.Second
	}
	if c.RecordsPageSize <= 0 {
		c.RecordsPageSize = 200
	}
	if c.Realtime.WebSocketPath == "" {
		c.Realtime.WebSocketPath = "/ws/notifications"
	}
	if c.Realtime.ClientSendChannelBuffer <= 0 {
		c.Realtime.ClientSendChannelBuffer = 32
	}
	if c.Redis.StreamMaxLength <= 0 {
		c.Redis.StreamMaxLength = 1000
	}
}

// DefaultAdminConfig returns an AdminConfig with default values.
func DefaultAdminConfig() *AdminConfig {
	return &AdminConfig{
		DatabaseName:       "kinto_admin",
		RemoteTimeout:      15 * time.Second,
		HistoryLimit:       10,
		ServerInfoTTL:      5 * time.Minute,
		RecordsPageSize:    200,
		ConsoleIdleTimeout: time.Hour,
		Redis: RedisConfig{
			Host:            "localhost",
			Port:            "6379",
			MaxRetries:      3,
			PoolSize:        10,
			MinIdleConns:    2,
			ConnMaxIdleTime: 30 * time.Minute,
			ConnMaxLifetime: time.Hour,
			StreamMaxLength: 1000,
		},
		Realtime: RealtimeConfig{
			WebSocketPath:           "/ws/notifications",
			ClientSendChannelBuffer: 32,
			ServerChangeDebounce:    500 * time.Millisecond,
		},
	}
}
