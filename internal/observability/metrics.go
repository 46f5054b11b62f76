package observability

import (
	"strconv"
	"sync"
	"time"
)

// Auth outcome labels tracked by Metrics.
const (
	OutcomeLoginOK             = "login_ok"
	OutcomeLoginRejected       = "login_rejected"
	OutcomeRegistrationNew     = "registration_new"
	OutcomeRegistrationUpdated = "registration_updated"
	OutcomeGuardAllowed        = "guard_allowed"
	OutcomeGuardRedirected     = "guard_redirected"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	authCount    map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		authCount:    make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordAuthOutcome counts login/registration/guard decisions by label.
func (m *Metrics) RecordAuthOutcome(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authCount[outcome]++
}

// AuthOutcome returns the current count for an outcome label.
func (m *Metrics) AuthOutcome(outcome string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authCount[outcome]
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
