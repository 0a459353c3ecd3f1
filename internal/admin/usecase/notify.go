package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/kinto"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewNotification builds a notification with a fresh id
func NewNotification(t model.NotificationType, message string, opts model.NotifyOptions) model.Notification {
	return model.Notification{
		ID:         uuid.NewString(),
		Type:       t,
		Message:    message,
		Details:    opts.Details,
		Persistent: opts.Persistent,
		Time:       time.Now().UTC(),
	}
}

// ErrorDetails lists the human readable details of a failed remote call:
// the server message followed by each detail entry, sorted by key.
func ErrorDetails(err error) []string {
	if err == nil {
		return nil
	}
	var se *kinto.ServerError
	if !errors.As(err, &se) {
		return []string{err.Error()}
	}

	details := []string{}
	switch {
	case se.Message != "":
		details = append(details, se.Message)
	case len(se.Body) > 0 && se.ErrorName == "":
		details = append(details, string(se.Body))
	default:
		details = append(details, se.Error())
	}
	keys := make([]string, 0, len(se.Details))
	for k := range se.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		details = append(details, fmt.Sprintf("%s: %v", k, se.Details[k]))
	}
	return details
}

func (c *Coordinator) notify(ctx context.Context, t model.NotificationType, message string, opts model.NotifyOptions) {
	c.put(ctx, action.AddNotification(NewNotification(t, message, opts)))
}

func (c *Coordinator) notifySuccess(ctx context.Context, message string, opts ...model.NotifyOptions) {
	c.notify(ctx, model.NotificationSuccess, message, firstOptions(opts))
}

func (c *Coordinator) notifyInfo(ctx context.Context, message string, opts ...model.NotifyOptions) {
	c.notify(ctx, model.NotificationInfo, message, firstOptions(opts))
}

// notifyError reports a failure. Error notifications are persistent so that a
// following route change does not hide them.
func (c *Coordinator) notifyError(ctx context.Context, message string, err error) {
	if err != nil {
		c.log.Error(message, zap.Error(err))
	} else {
		c.log.Warn(message)
	}
	c.notify(ctx, model.NotificationError, message, model.NotifyOptions{
		Persistent: true,
		Details:    ErrorDetails(err),
	})
}

func (c *Coordinator) notifyErrorDetails(ctx context.Context, message string, details []string) {
	c.log.Warn(message, zap.Strings("details", details))
	c.notify(ctx, model.NotificationError, message, model.NotifyOptions{Persistent: true, Details: details})
}

func firstOptions(opts []model.NotifyOptions) model.NotifyOptions {
	if len(opts) == 0 {
		return model.NotifyOptions{}
	}
	return opts[0]
}
