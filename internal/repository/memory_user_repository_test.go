package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/assistant-auth/internal/domain"
	apperrors "github.com/spec-kit/assistant-auth/pkg/util"
)

func TestMemoryRepositoryConstraintSemantics(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	first := &domain.User{Name: "Aisha", PhoneFingerprint: "fp-1", Email: "aisha@example.com"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" {
		t.Fatal("create must assign an id")
	}

	// Same fingerprint: the store constraint decides, caller sees Conflict.
	dup := &domain.User{Name: "Other", PhoneFingerprint: "fp-1"}
	assertConflict(t, repo.Create(ctx, dup))

	// Same email, different fingerprint.
	emailDup := &domain.User{Name: "Brie", PhoneFingerprint: "fp-2", Email: "aisha@example.com"}
	assertConflict(t, repo.Create(ctx, emailDup))

	if _, err := repo.GetByPhoneFingerprint(ctx, "fp-404"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("miss must be pgx.ErrNoRows, got %v", err)
	}

	loaded, err := repo.GetByPhoneFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if loaded.ID != first.ID {
		t.Fatalf("lookup resolved %s, want %s", loaded.ID, first.ID)
	}
}

func TestMemoryRepositoryTouchLastLogin(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := &domain.User{Name: "Aisha", PhoneFingerprint: "fp-1"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.TouchLastLogin(ctx, user.ID); err != nil {
		t.Fatalf("touch: %v", err)
	}

	reloaded, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.LastLoginAt == nil {
		t.Fatal("last login timestamp not set")
	}

	if err := repo.TouchLastLogin(ctx, "missing"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("touch on missing user must be pgx.ErrNoRows, got %v", err)
	}
}

func assertConflict(t *testing.T, err error) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}
