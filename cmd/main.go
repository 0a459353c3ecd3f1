package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	adminconfig "kinto-admin/internal/admin/config"
	authconfig "kinto-admin/internal/auth/config"
	"kinto-admin/internal/di"
	apperrors "kinto-admin/internal/shared/errors"
	"kinto-admin/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ServerConfig is the listening address of the console backend
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"localhost"`
	Port            string        `env:"SERVER_PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func main() {
	// .env is optional outside development
	_ = godotenv.Load()

	log := logger.NewLogger()
	logger.SetDefault(log)

	if err := run(log); err != nil {
		log.Fatal("Console backend stopped", zap.Error(err))
	}
}

func run(log logger.Logger) error {
	var serverCfg ServerConfig
	if err := env.Parse(&serverCfg); err != nil {
		return fmt.Errorf("server configuration: %w", err)
	}
	authCfg, err := authconfig.LoadConfig()
	if err != nil {
		return fmt.Errorf("auth configuration: %w", err)
	}
	adminCfg, err := adminconfig.LoadConfig()
	if err != nil {
		return fmt.Errorf("admin configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container := di.NewContainer(log)
	defer func() {
		if err := container.Close(); err != nil {
			log.Error("Failed to release storage", zap.Error(err))
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := container.Connect(connectCtx, adminCfg); err != nil {
		return err
	}
	if err := container.InitializeAuth(authCfg); err != nil {
		return err
	}
	if err := container.InitializeAdmin(); err != nil {
		return err
	}

	admin := container.GetAdminModule()
	if err := admin.Start(connectCtx); err != nil {
		log.Warn("Persisted sessions were not restored", zap.Error(err))
	}

	app := newApp(container, log)
	addr := net.JoinHostPort(serverCfg.Host, serverCfg.Port)

	listenErr := make(chan error, 1)
	go func() {
		log.Info("Console backend listening", zap.String("addr", addr), zap.String("console_url", authCfg.ConsoleURL))
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancelShutdown()
	return app.ShutdownWithContext(shutdownCtx)
}

func newApp(container *di.Container, log logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Kinto Admin Console",
		DisableStartupMessage: true,
		// route params and cookies are kept in console state
		Immutable:             true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		// attachments are uploaded through the console
		BodyLimit: 32 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := apperrors.HTTPStatus(err)
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	mw := container.GetAuthModule().GetMiddleware()
	app.Use(recover.New())
	app.Use(mw.CORS())
	app.Use(mw.SecurityHeaders())

	admin := container.GetAdminModule()
	app.Get("/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()
		if err := container.HealthCheck(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "UNHEALTHY", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "READY", "consoles": admin.Usecase.ConsoleCount()})
	})
	admin.RegisterRoutes(app)

	return app
}
