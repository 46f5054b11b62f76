package events

// EventType enumerates auth lifecycle events.
type EventType string

const (
	EventUserRegistered EventType = "auth.user_registered"
	EventUserLoggedIn   EventType = "auth.user_logged_in"
	EventLoginRejected  EventType = "auth.login_rejected"
)

// Event is published by the auth service on lifecycle transitions. UserID is
// empty for rejected logins (there may be no resolved account); Payload holds
// internal-only detail such as the rejection cause and is never echoed to
// clients.
type Event struct {
	Type    EventType
	UserID  string
	Payload map[string]any
}
