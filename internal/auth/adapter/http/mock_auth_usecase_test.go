package http_test

import (
	"context"

	"kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/auth/domain/repository"
	"kinto-admin/internal/kinto"

	"github.com/stretchr/testify/mock"
)

// mockAuthUsecase is a shared mock type for the AuthUsecaseInterface
type mockAuthUsecase struct {
	mock.Mock
}

func (m *mockAuthUsecase) SupportedMethods(info kinto.ServerInfo) []model.Method {
	args := m.Called(info)
	return args.Get(0).([]model.Method)
}

func (m *mockAuthUsecase) NormalizeAuthData(data model.AuthData) model.AuthData {
	args := m.Called(data)
	return args.Get(0).(model.AuthData)
}

func (m *mockAuthUsecase) ServerByPriority(history []string) string {
	args := m.Called(history)
	return args.String(0)
}

func (m *mockAuthUsecase) ValidateServerURL(server string) error {
	args := m.Called(server)
	return args.Error(0)
}

func (m *mockAuthUsecase) Resolve(data model.AuthData, info kinto.ServerInfo) (*model.SubmitDecision, error) {
	args := m.Called(data, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubmitDecision), args.Error(1)
}

func (m *mockAuthUsecase) CompleteExternal(payload, token string) (model.AuthData, error) {
	args := m.Called(payload, token)
	return args.Get(0).(model.AuthData), args.Error(1)
}

func (m *mockAuthUsecase) IssueToken(ctx context.Context, sessionID, clientID, server string) (string, error) {
	args := m.Called(ctx, sessionID, clientID, server)
	return args.String(0), args.Error(1)
}

func (m *mockAuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	args := m.Called(ctx, tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Claims), args.Error(1)
}

func (m *mockAuthUsecase) SaveSession(ctx context.Context, sessionID, clientID string, data model.AuthData) error {
	args := m.Called(ctx, sessionID, clientID, data)
	return args.Error(0)
}

func (m *mockAuthUsecase) LoadSession(ctx context.Context, sessionID string) (*model.Session, model.AuthData, error) {
	args := m.Called(ctx, sessionID)
	var session *model.Session
	if s := args.Get(0); s != nil {
		session = s.(*model.Session)
	}
	return session, args.Get(1).(model.AuthData), args.Error(2)
}

func (m *mockAuthUsecase) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockAuthUsecase) ActiveSessions(ctx context.Context) ([]*model.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Session), args.Error(1)
}
