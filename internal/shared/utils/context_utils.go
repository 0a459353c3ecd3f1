package utils

import (
	"context"
	"errors"

	"kinto-admin/internal/shared/contextkeys"
)

var (
	ErrSessionIDNotFound = errors.New("session id not found in context")
	ErrClientIDNotFound  = errors.New("client id not found in context")
	ErrServerNotFound    = errors.New("server not found in context")
	ErrRequestIDNotFound = errors.New("request id not found in context")
)

func lookup(ctx context.Context, key contextkeys.Key, missing error) (string, error) {
	if v, ok := contextkeys.Lookup(ctx, key); ok {
		return v, nil
	}
	return "", missing
}

// GetSessionIDFromContext returns the console session bound by the auth middleware
func GetSessionIDFromContext(ctx context.Context) (string, error) {
	return lookup(ctx, contextkeys.SessionIDKey, ErrSessionIDNotFound)
}

func GetClientIDFromContext(ctx context.Context) (string, error) {
	return lookup(ctx, contextkeys.ClientIDKey, ErrClientIDNotFound)
}

func GetServerFromContext(ctx context.Context) (string, error) {
	return lookup(ctx, contextkeys.ServerKey, ErrServerNotFound)
}

func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return lookup(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextkeys.SessionIDKey, sessionID)
}

func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, contextkeys.ClientIDKey, clientID)
}

func WithServer(ctx context.Context, server string) context.Context {
	return context.WithValue(ctx, contextkeys.ServerKey, server)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}
