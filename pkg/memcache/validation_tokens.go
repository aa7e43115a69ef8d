package memcache

import (
	"sync"
	"time"
)

// TokenStore caches the short-lived validation tokens the processor issues
// per access code, so repeated verification attempts for the same checkout
// session do not refetch one.
type TokenStore interface {
	Set(accessCode string, token string, ttl time.Duration)

	// Get returns the cached token for accessCode if not expired.
	Get(accessCode string) (string, bool)
}

type entry struct {
	token     string
	expiresAt time.Time
}

type ValidationTokens struct {
	mu   sync.RWMutex
	data map[string]entry
}

func NewValidationTokens() *ValidationTokens {
	return &ValidationTokens{
		data: make(map[string]entry),
	}
}

func (s *ValidationTokens) Set(accessCode string, token string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[accessCode] = entry{
		token:     token,
		expiresAt: time.Now().Add(ttl),
	}
}

func (s *ValidationTokens) Get(accessCode string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[accessCode]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.data, accessCode)
		return "", false
	}
	return e.token, true
}
