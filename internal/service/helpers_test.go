package service

import (
	"errors"
	"testing"

	"github.com/spec-kit/assistant-auth/internal/auth"
	apperrors "github.com/spec-kit/assistant-auth/pkg/util"
)

func asDomainError(err error, target **apperrors.DomainError) bool {
	return errors.As(err, target)
}

func mustFingerprint(t *testing.T, phone string) string {
	t.Helper()
	fp, err := auth.PhoneFingerprint(phone)
	if err != nil {
		t.Fatalf("fingerprint %q: %v", phone, err)
	}
	return fp
}
