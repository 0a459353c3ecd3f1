package repository

import (
	"context"

	"kinto-admin/internal/auth/domain/model"
)

// SessionRepository persists console sessions
type SessionRepository interface {
	Save(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*model.Session, error)
}
