package service

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/assistant-auth/internal/auth"
	"github.com/spec-kit/assistant-auth/internal/config"
	"github.com/spec-kit/assistant-auth/internal/domain"
	"github.com/spec-kit/assistant-auth/internal/events"
	"github.com/spec-kit/assistant-auth/internal/observability"
	"github.com/spec-kit/assistant-auth/internal/repository"
	apperrors "github.com/spec-kit/assistant-auth/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	sessions   *auth.SessionManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL()),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// LoginResult carries the authenticated identity and its freshly issued
// session token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// RegisterInput is the full registration payload after transport decoding.
type RegisterInput struct {
	Name     string
	Phone    string
	PIN      string
	Email    string
	Metadata domain.UserMetadata
}

// RegisterResult reports the stored identity and whether it was brand new or
// a completed partial registration.
type RegisterResult struct {
	User    *domain.User
	Created bool
}

// Login authenticates a phone+PIN pair and mints exactly one session token on
// success. Every rejection path returns the same generic invalid-credentials
// error: the response shape never reveals whether the phone or the PIN was
// wrong.
func (s *AuthService) Login(ctx context.Context, phone, pin string) (*LoginResult, error) {
	if !auth.ValidPIN(pin) {
		return nil, s.reject(ctx, "", "malformed pin")
	}

	fingerprint, err := auth.PhoneFingerprint(phone)
	if err != nil {
		return nil, s.reject(ctx, "", "malformed phone")
	}

	user, err := s.users.GetByPhoneFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.reject(ctx, "", "unknown phone fingerprint")
		}
		// A store failure is not a credential failure: surface it as
		// 503 so operators can tell "database down" from "wrong PIN".
		s.logger.Error("login lookup failed", zap.Error(err))
		return nil, apperrors.NewServiceUnavailable(err)
	}

	if !user.HasPIN() {
		return nil, s.reject(ctx, user.ID, "partial registration without pin")
	}
	if err := auth.VerifyPIN(user.PINHash, pin); err != nil {
		return nil, s.reject(ctx, user.ID, "pin mismatch")
	}

	// Best-effort: a failed timestamp refresh must never block the session.
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("last-login refresh failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	token, expiresAt, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordAuthOutcome(observability.OutcomeLoginOK)
	s.publish(ctx, events.Event{Type: events.EventUserLoggedIn, UserID: user.ID})
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Register validates the payload and upserts on the phone fingerprint: a
// prior partial signup for the same phone is completed in place rather than
// rejected as a duplicate, while a fresh phone creates a new identity.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	normalized := auth.NormalizePhone(in.Phone)

	details := map[string]any{}
	if in.Name == "" {
		details["name"] = "required"
	}
	if !auth.ValidPhoneLength(normalized) {
		details["phone"] = "must be 10 to 15 digits"
	}
	if !auth.ValidPIN(in.PIN) {
		details["pin"] = "must be exactly 6 digits"
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			details["email"] = "malformed address"
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewInvalidCredentialFormat("invalid registration fields", details)
	}

	fingerprint, err := auth.PhoneFingerprint(normalized)
	if err != nil {
		return nil, apperrors.NewInvalidCredentialFormat("invalid registration fields", map[string]any{"phone": "required"})
	}

	pinHash, err := auth.HashPIN(in.PIN, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	existing, err := s.users.GetByPhoneFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		return s.completeRegistration(ctx, existing, in, pinHash)
	case errors.Is(err, pgx.ErrNoRows):
		return s.createRegistration(ctx, in, fingerprint, pinHash)
	default:
		s.logger.Error("registration lookup failed", zap.Error(err))
		return nil, apperrors.NewServiceUnavailable(err)
	}
}

// completeRegistration fills in a partial record for an already-known phone.
func (s *AuthService) completeRegistration(ctx context.Context, user *domain.User, in RegisterInput, pinHash string) (*RegisterResult, error) {
	if in.Email != "" && in.Email != user.Email {
		if err := s.ensureEmailFree(ctx, in.Email, user.ID); err != nil {
			return nil, err
		}
	}

	user.Name = in.Name
	user.PINHash = pinHash
	if in.Email != "" {
		user.Email = in.Email
	}
	user.Metadata = in.Metadata
	user.OnboardingCompleted = true

	if err := s.users.Update(ctx, user); err != nil {
		return nil, s.mapStoreError(err)
	}

	s.metrics.RecordAuthOutcome(observability.OutcomeRegistrationUpdated)
	s.publish(ctx, events.Event{
		Type:    events.EventUserRegistered,
		UserID:  user.ID,
		Payload: map[string]any{"new": false},
	})
	return &RegisterResult{User: user, Created: false}, nil
}

// createRegistration inserts a fresh identity. A concurrent registration for
// the same phone is resolved by the store's unique constraint: the loser
// receives Conflict, no locking here.
func (s *AuthService) createRegistration(ctx context.Context, in RegisterInput, fingerprint, pinHash string) (*RegisterResult, error) {
	if in.Email != "" {
		if err := s.ensureEmailFree(ctx, in.Email, ""); err != nil {
			return nil, err
		}
	}

	user := &domain.User{
		Name:                in.Name,
		Email:               in.Email,
		PhoneFingerprint:    fingerprint,
		PINHash:             pinHash,
		Metadata:            in.Metadata,
		OnboardingCompleted: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, s.mapStoreError(err)
	}

	s.metrics.RecordAuthOutcome(observability.OutcomeRegistrationNew)
	s.publish(ctx, events.Event{
		Type:    events.EventUserRegistered,
		UserID:  user.ID,
		Payload: map[string]any{"new": true},
	})
	return &RegisterResult{User: user, Created: true}, nil
}

// ensureEmailFree enforces email uniqueness independently of phone
// uniqueness.
func (s *AuthService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	other, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		s.logger.Error("email lookup failed", zap.Error(err))
		return apperrors.NewServiceUnavailable(err)
	}
	if other.ID == selfID {
		return nil
	}
	return apperrors.NewConflict("email already registered", map[string]any{"email": email})
}

// GetProfile loads the identity attached by the route guard.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewServiceUnavailable(err)
	}
	return user, nil
}

// Sessions exposes the session manager for route guard construction.
func (s *AuthService) Sessions() *auth.SessionManager {
	return s.sessions
}

// reject logs the real cause internally, counts the outcome, and returns the
// one generic error the caller is allowed to see.
func (s *AuthService) reject(ctx context.Context, userID, cause string) error {
	s.logger.Debug("login rejected", zap.String("cause", cause))
	s.metrics.RecordAuthOutcome(observability.OutcomeLoginRejected)
	s.publish(ctx, events.Event{
		Type:    events.EventLoginRejected,
		UserID:  userID,
		Payload: map[string]any{"cause": cause},
	})
	return apperrors.NewInvalidCredentials()
}

// mapStoreError passes Conflict through and wraps everything else as a store
// outage.
func (s *AuthService) mapStoreError(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == "CONFLICT" {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("user")
	}
	s.logger.Error("store write failed", zap.Error(err))
	return apperrors.NewServiceUnavailable(err)
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
