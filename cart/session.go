package cart

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/solelace/storefront/domain"
	"github.com/solelace/storefront/kv"
)

// Fixed, versionless storage keys for session state.
const (
	sessionKey  = "session"
	deviceIDKey = "device_id"
)

// Credentials are the persisted session of an authenticated customer.
type Credentials struct {
	Token      string `json:"token"`
	CustomerID int64  `json:"customerId"`
	Role       string `json:"role"`
}

// Session resolves the current cart owner. Identity is re-read from
// durable storage on every call so that login and logout between cart
// operations are always observed.
type Session struct {
	store kv.Store
	now   func() time.Time
}

// NewSession creates a session over the given persistence.
func NewSession(store kv.Store) *Session {
	return &Session{store: store, now: time.Now}
}

// SetCredentials persists session credentials after login/registration.
func (s *Session) SetCredentials(creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := s.store.Put(sessionKey, data); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// Clear removes the persisted session on logout.
func (s *Session) Clear() error {
	return s.store.Delete(sessionKey)
}

// Token returns the current bearer token, or "" when unauthenticated.
// Suitable as a gateway.TokenSource.
func (s *Session) Token() string {
	creds, ok := s.credentials()
	if !ok {
		return ""
	}
	return creds.Token
}

// Owner resolves the current cart owner: an authenticated customer when
// valid credentials exist, otherwise the device-local guest. An expired
// token degrades to guest rather than erroring.
func (s *Session) Owner() domain.Owner {
	creds, ok := s.credentials()
	if !ok || creds.Token == "" || creds.CustomerID <= 0 {
		return domain.GuestOwner()
	}
	if s.tokenExpired(creds.Token) {
		return domain.GuestOwner()
	}
	return domain.CustomerOwner(creds.CustomerID)
}

// DeviceID returns the durable device-scoped identifier, generating and
// persisting one on first use.
func (s *Session) DeviceID() string {
	if data, err := s.store.Get(deviceIDKey); err == nil && len(data) > 0 {
		return string(data)
	}

	id := uuid.NewString()
	// Best effort: an unpersistable device ID still scopes this run.
	_ = s.store.Put(deviceIDKey, []byte(id))
	return id
}

func (s *Session) credentials() (Credentials, bool) {
	data, err := s.store.Get(sessionKey)
	if err != nil {
		return Credentials{}, false
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, false
	}
	return creds, true
}

// tokenExpired checks the token's exp claim without verifying the
// signature; verification belongs to the server. Tokens that don't
// parse or carry no expiry are treated as still valid and left for the
// server to reject.
func (s *Session) tokenExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(s.now())
}
