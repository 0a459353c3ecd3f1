package auth

import (
	"fmt"

	authhttp "kinto-admin/internal/auth/adapter/http"
	"kinto-admin/internal/auth/adapter/persistence/memory"
	"kinto-admin/internal/auth/adapter/persistence/mongodb"
	"kinto-admin/internal/auth/adapter/security"
	"kinto-admin/internal/auth/config"
	"kinto-admin/internal/auth/domain/repository"
	"kinto-admin/internal/auth/usecase"

	"go.mongodb.org/mongo-driver/mongo"
)

// AuthModule represents the complete authentication module
type AuthModule struct {
	sessions   repository.SessionRepository
	tokenSvc   repository.TokenService
	usecase    usecase.AuthUsecaseInterface
	middleware *authhttp.AuthMiddleware
	config     *config.Config
}

// NewAuthModule creates the authentication module. Sessions are stored in
// db when it is not nil, in memory otherwise.
func NewAuthModule(db *mongo.Database, cfg *config.Config) (*AuthModule, error) {
	var sessions repository.SessionRepository
	if db != nil {
		repo, err := mongodb.NewMongoSessionRepository(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create session repository: %w", err)
		}
		sessions = repo
	} else {
		sessions = memory.NewSessionRepository()
	}
	return NewAuthModuleWithRepository(sessions, cfg)
}

// NewAuthModuleWithRepository creates the module around an existing session repository
func NewAuthModuleWithRepository(sessions repository.SessionRepository, cfg *config.Config) (*AuthModule, error) {
	tokenSvc, err := security.NewConsoleTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	sealer, err := security.NewSealer(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}

	authUsecase := usecase.NewAuthUsecase(tokenSvc, security.NewJWTInspector(), sealer, sessions, cfg)

	return &AuthModule{
		sessions:   sessions,
		tokenSvc:   tokenSvc,
		usecase:    authUsecase,
		middleware: authhttp.NewAuthMiddleware(authUsecase, cfg),
		config:     cfg,
	}, nil
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}

// GetConfig returns the auth configuration
func (am *AuthModule) GetConfig() *config.Config {
	return am.config
}

// Stop performs cleanup when the module is shut down
func (am *AuthModule) Stop() error {
	return nil
}
