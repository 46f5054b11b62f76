package dto

// LoginRequest payload for phone+PIN login.
type LoginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

// RegisterRequest payload for registration. Clients have historically sent
// the phone under either key, so both are accepted.
type RegisterRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	PhoneNumber string `json:"phoneNumber"`
	PIN         string `json:"pin"`
	Email       string `json:"email"`
	Profession  string `json:"profession"`
	Source      string `json:"source"`
	About       string `json:"about"`
}

// PhoneValue returns whichever phone field the client populated.
func (r RegisterRequest) PhoneValue() string {
	if r.Phone != "" {
		return r.Phone
	}
	return r.PhoneNumber
}

// UserSummary is the identity summary returned on login.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProfileResponse is the guard-protected profile view.
type ProfileResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email,omitempty"`
	Profession          string `json:"profession,omitempty"`
	Source              string `json:"source,omitempty"`
	About               string `json:"about,omitempty"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
}
