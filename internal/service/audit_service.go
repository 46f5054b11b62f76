package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/assistant-auth/internal/events"
)

// AuditService writes a structured audit trail for auth lifecycle events.
// Rejection causes arrive via event payloads and stay in the logs; clients
// only ever see the collapsed generic errors.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to auth events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handleUserLoggedIn)
	a.dispatcher.Subscribe(events.EventLoginRejected, a.handleLoginRejected)
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	a.logger.Info("UserRegistered",
		zap.String("user_id", event.UserID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleUserLoggedIn(_ context.Context, event events.Event) error {
	a.logger.Info("UserLoggedIn", zap.String("user_id", event.UserID))
	return nil
}

func (a *AuditService) handleLoginRejected(_ context.Context, event events.Event) error {
	a.logger.Info("LoginRejected",
		zap.String("user_id", event.UserID),
		zap.Any("payload", event.Payload))
	return nil
}
