package session

import (
	"sync"
	"time"

	"github.com/needle-digital/dh-importer/token"
)

// Snapshot is the full set of session fields, used both to mutate the store
// and to observe it atomically.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // zero value means no valid session
	Role         token.Role
	LastIdentity string
}

// Store holds the process-wide authentication state. It is a pure data
// holder: no I/O happens here, persistence belongs to the Controller.
// Only the Controller writes it; everything else reads.
type Store struct {
	mu      sync.RWMutex
	current Snapshot
	nowFunc func() time.Time
}

type StoreOption func(*Store)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func NewStore(options ...StoreOption) *Store {
	s := &Store{nowFunc: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Set replaces every session field at once. Role and AccessToken are set
// together by construction of Snapshot; callers never set one without the
// other.
func (s *Store) Set(sn Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sn
}

// Clear resets every field to its unset value. Idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot{}
}

// Snapshot returns a copy of the current session fields.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// AccessToken returns the current access token and whether one is set.
func (s *Store) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken, s.current.AccessToken != ""
}

// Authenticated reports whether a token is present and unexpired.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken != "" && s.nowFunc().Before(s.current.ExpiresAt)
}

// Role returns the current tier, RoleUnset when logged out.
func (s *Store) Role() token.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Role
}

// LastIdentity returns the email used for the most recent login, kept for
// UI autofill only.
func (s *Store) LastIdentity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.LastIdentity
}
