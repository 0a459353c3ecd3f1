package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kinto-admin/internal/admin"
	adminconfig "kinto-admin/internal/admin/config"
	"kinto-admin/internal/auth"
	authconfig "kinto-admin/internal/auth/config"
	"kinto-admin/internal/kinto"
	"kinto-admin/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Container owns the storage connections and the modules built on them
type Container struct {
	mu sync.RWMutex

	// Module instances
	AuthModule  *auth.AuthModule
	AdminModule *admin.AdminModule

	// Connections, nil when the memory adapters are used
	MongoClient *mongo.Client
	MongoDB     *mongo.Database
	Redis       *redis.Client

	// Configuration
	AuthConfig  *authconfig.Config
	AdminConfig *adminconfig.AdminConfig

	Logger logger.Logger
}

// NewContainer creates an empty container
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.Default()
	}
	return &Container{Logger: log.WithComponent("container")}
}

// Connect opens the MongoDB and Redis connections cfg enables
func (c *Container) Connect(ctx context.Context, cfg *adminconfig.AdminConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AdminConfig = cfg

	if cfg.MongoDBURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURI))
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		c.MongoClient = client
		c.MongoDB = client.Database(cfg.DatabaseName)
		c.Logger.Info("MongoDB connection established", zap.String("database", cfg.DatabaseName))
	}

	if cfg.RedisEnabled {
		client := adminconfig.NewRedisClient(&cfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to ping Redis at %s: %w", cfg.Redis.GetAddr(), err)
		}
		c.Redis = client
		c.Logger.Info("Redis connection established", zap.String("addr", cfg.Redis.GetAddr()))
	}
	return nil
}

// InitializeAuth creates the authentication module
func (c *Container) InitializeAuth(authConfig *authconfig.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	authModule, err := auth.NewAuthModule(c.MongoDB, authConfig)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}
	c.AuthConfig = authConfig
	c.AuthModule = authModule
	return nil
}

// InitializeAdmin creates the admin module on top of the auth module
func (c *Container) InitializeAdmin(opts ...kinto.Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AuthModule == nil {
		return errors.New("auth module must be initialized before the admin module")
	}

	adminModule, err := admin.NewAdminModule(c.AuthModule, c.Logger, c.MongoDB, c.Redis, c.AdminConfig, opts...)
	if err != nil {
		return fmt.Errorf("failed to create admin module: %w", err)
	}
	c.AdminModule = adminModule
	return nil
}

// GetAuthModule returns the auth module instance
func (c *Container) GetAuthModule() *auth.AuthModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthModule
}

// GetAdminModule returns the admin module instance
func (c *Container) GetAdminModule() *admin.AdminModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AdminModule
}

// HealthCheck pings the open connections
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.MongoClient != nil {
		if err := c.MongoClient.Ping(ctx, nil); err != nil {
			return fmt.Errorf("MongoDB health check failed: %w", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("Redis health check failed: %w", err)
		}
	}
	return nil
}

// Cleanup stops the modules in reverse order of initialization, then closes the connections
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.AdminModule != nil {
		if err := c.AdminModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop admin module: %w", err))
		}
		c.AdminModule = nil
	}
	if c.AuthModule != nil {
		if err := c.AuthModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop auth module: %w", err))
		}
		c.AuthModule = nil
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
		c.Redis = nil
	}
	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect MongoDB: %w", err))
		}
		c.MongoClient = nil
		c.MongoDB = nil
	}
	return errors.Join(errs...)
}

// Close shuts everything down within 30 seconds
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.Logger.Info("Closing container resources")
	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warn("Cleanup errors occurred", zap.Error(err))
		return err
	}
	return nil
}
