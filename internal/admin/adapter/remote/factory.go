package remote

import (
	"time"

	"kinto-admin/internal/admin/config"
	"kinto-admin/internal/admin/domain/client"
	"kinto-admin/internal/kinto"
	"kinto-admin/internal/shared/logger"
)

// NewFactory returns a client.Factory building kinto clients with the
// configured timeout. Extra options are applied to every client.
func NewFactory(cfg *config.AdminConfig, log logger.Logger, opts ...kinto.Option) client.Factory {
	timeout := Timeout(cfg)
	if log == nil {
		log = logger.NewNopLogger()
	}
	return func(server, authorization string) client.RemoteStore {
		all := []kinto.Option{
			kinto.WithTimeout(timeout),
			kinto.WithLogger(log),
			kinto.WithAuthorization(authorization),
		}
		all = append(all, opts...)
		return kinto.New(server, all...)
	}
}

// Timeout returns the timeout the factory applies for cfg
func Timeout(cfg *config.AdminConfig) time.Duration {
	if cfg != nil && cfg.RemoteTimeout > 0 {
		return cfg.RemoteTimeout
	}
	return kinto.DefaultTimeout
}
