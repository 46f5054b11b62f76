package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/assistant-auth/internal/domain"
	apperrors "github.com/spec-kit/assistant-auth/pkg/util"
)

// memoryUserRepository is an in-memory UserRepository with the same
// constraint semantics as the Postgres implementation. It backs local
// development without a database and the service-level tests.
type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMemoryUserRepository creates an empty in-memory repository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.PhoneFingerprint == user.PhoneFingerprint {
			return apperrors.NewConflict("account already exists", map[string]any{"constraint": "users_phone_fingerprint_key"})
		}
		if user.Email != "" && existing.Email == user.Email {
			return apperrors.NewConflict("account already exists", map[string]any{"constraint": "users_email_key"})
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if user.Email != "" {
		for id, other := range r.users {
			if id != user.ID && other.Email == user.Email {
				return apperrors.NewConflict("account already exists", map[string]any{"constraint": "users_email_key"})
			}
		}
	}

	clone := *user
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	clone.LastLoginAt = existing.LastLoginAt
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepository) GetByPhoneFingerprint(_ context.Context, fingerprint string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.PhoneFingerprint == fingerprint {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if email == "" {
		return nil, pgx.ErrNoRows
	}
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepository) TouchLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	return nil
}
