package domain

import "time"

// UserMetadata carries the free-form onboarding answers collected at
// registration.
type UserMetadata struct {
	Profession string
	Source     string
	About      string
}

// User is the domain model for assistant accounts. The plaintext phone number
// is never stored: PhoneFingerprint is an irreversible hash used only for
// equality lookup, and PINHash is a one-way hash used only for verification.
type User struct {
	ID                  string
	Name                string
	Email               string
	PhoneFingerprint    string
	PINHash             string
	Metadata            UserMetadata
	OnboardingCompleted bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastLoginAt         *time.Time
}

// HasPIN reports whether the account finished credential setup. Partial
// registrations (first contact via phone only) have no PIN hash yet and must
// never authenticate.
func (u *User) HasPIN() bool {
	return u != nil && u.PINHash != ""
}
