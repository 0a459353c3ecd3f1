package admin

import (
	"context"
	"fmt"

	adminhttp "kinto-admin/internal/admin/adapter/http"
	"kinto-admin/internal/admin/adapter/persistence/memory"
	mongopersistence "kinto-admin/internal/admin/adapter/persistence/mongodb"
	redispersistence "kinto-admin/internal/admin/adapter/persistence/redis"
	"kinto-admin/internal/admin/adapter/remote"
	"kinto-admin/internal/admin/config"
	"kinto-admin/internal/admin/domain/repository"
	"kinto-admin/internal/admin/domain/service"
	"kinto-admin/internal/admin/usecase"
	"kinto-admin/internal/auth"
	"kinto-admin/internal/kinto"
	"kinto-admin/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AdminModule wires the consoles, their storage and the HTTP surface.
type AdminModule struct {
	Config  *config.AdminConfig
	Usecase *usecase.AdminUsecase
	Handler *adminhttp.AdminHandler
	Logger  logger.Logger

	History repository.HistoryRepository
	Stream  repository.NotificationStream
	Cache   repository.ServerInfoCache
}

// NewAdminModule creates the admin module. Server history goes to db when it
// is not nil; the notification stream and the capabilities cache go to
// redisClient when it is not nil. Both fall back to memory.
func NewAdminModule(
	authModule *auth.AuthModule,
	log logger.Logger,
	db *mongo.Database,
	redisClient *redis.Client,
	cfg *config.AdminConfig,
	opts ...kinto.Option,
) (*AdminModule, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg == nil {
		loaded, err := config.LoadConfig()
		if err != nil {
			log.Warn("Failed to load admin config from environment, using defaults", zap.Error(err))
			loaded = config.DefaultAdminConfig()
		}
		cfg = loaded
	}
	log = log.WithComponent("admin")

	var history repository.HistoryRepository = memory.NewHistoryRepository(cfg.HistoryLimit)
	if db != nil {
		repo, err := mongopersistence.NewMongoHistoryRepository(db, cfg.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to create history repository: %w", err)
		}
		history = repo
	}

	var stream repository.NotificationStream = memory.NewNotificationStream(int(cfg.Redis.StreamMaxLength))
	var cache repository.ServerInfoCache = memory.NewServerInfoCache()
	if redisClient != nil {
		stream = redispersistence.NewRedisNotificationStream(redisClient, cfg.Redis.StreamMaxLength, log)
		cache = redispersistence.NewRedisServerInfoCache(redisClient, log)
	}

	filter, err := service.NewRecordFilter()
	if err != nil {
		return nil, fmt.Errorf("failed to create record filter: %w", err)
	}

	deps := usecase.ConsoleDeps{
		Factory:  remote.NewFactory(cfg, log, opts...),
		Sessions: authModule.GetUsecase(),
		History:  history,
		Stream:   stream,
		Hub:      usecase.NewNotificationHub(log),
		Filter:   filter,
		Config:   cfg,
		Logger:   log,
	}
	adminUC := usecase.NewAdminUsecase(deps, authModule.GetUsecase(), cache)
	handler := adminhttp.NewAdminHandler(adminUC, authModule.GetUsecase(), authModule.GetMiddleware(), cfg, authModule.GetConfig().ConsoleURL, log)

	log.Info("Admin module initialized",
		zap.Bool("mongodb_history", db != nil),
		zap.Bool("redis_stream", redisClient != nil))

	return &AdminModule{
		Config:  cfg,
		Usecase: adminUC,
		Handler: handler,
		Logger:  log,
		History: history,
		Stream:  stream,
		Cache:   cache,
	}, nil
}

// RegisterRoutes registers the console routes on router
func (m *AdminModule) RegisterRoutes(router fiber.Router) {
	m.Handler.RegisterRoutes(router)
}

// Start restores the consoles of stored sessions and starts evicting idle ones
func (m *AdminModule) Start(ctx context.Context) error {
	n, err := m.Usecase.RestoreSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore sessions: %w", err)
	}
	m.Logger.Info("Sessions restored", zap.Int("count", n))

	interval := m.Config.ConsoleIdleTimeout / 4
	m.Usecase.StartJanitor(interval)
	return nil
}

// Stop closes every console
func (m *AdminModule) Stop() error {
	m.Usecase.Stop()
	return nil
}
