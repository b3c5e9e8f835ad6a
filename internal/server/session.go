// Package server provides the HTTP authentication, WebSocket and command
// handling for the web interface.
package server

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

const (
	sessionCookieName = "scope_session"
	sessionDuration   = 24 * time.Hour
	csrfTokenDuration = 10 * time.Minute

	// sweepEvery is how many issued tokens trigger a sweep of expired ones.
	sweepEvery = 32
)

// tokenStore holds random tokens with an expiry.
type tokenStore struct {
	ttl    time.Duration
	now    func() time.Time
	mu     sync.Mutex
	tokens map[string]time.Time
	issued int
}

func newTokenStore(ttl time.Duration, now func() time.Time) *tokenStore {
	return &tokenStore{ttl: ttl, now: now, tokens: make(map[string]time.Time)}
}

// generateToken creates a 256-bit random hex token, or "" if the system RNG fails.
func generateToken() string {
	b := make([]byte, 32)
	if _, err := cryptorand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

func (s *tokenStore) issue() string {
	token := generateToken()
	if token == "" {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.issued++
	if s.issued%sweepEvery == 0 {
		for k, exp := range s.tokens {
			if now.After(exp) {
				delete(s.tokens, k)
			}
		}
	}
	s.tokens[token] = now.Add(s.ttl)
	return token
}

// valid reports whether token exists and has not expired. consume removes it either way.
func (s *tokenStore) valid(token string, consume bool) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.tokens[token]
	if !ok {
		return false
	}
	expired := s.now().After(exp)
	if consume || expired {
		delete(s.tokens, token)
	}
	return !expired
}

func (s *tokenStore) revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

func (s *tokenStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// SessionManager handles login sessions and single-use CSRF tokens for the login form.
type SessionManager struct {
	sessions *tokenStore
	csrf     *tokenStore
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return newSessionManager(time.Now)
}

func newSessionManager(now func() time.Time) *SessionManager {
	return &SessionManager{
		sessions: newTokenStore(sessionDuration, now),
		csrf:     newTokenStore(csrfTokenDuration, now),
	}
}

// Create starts a session and returns its token.
func (sm *SessionManager) Create() string {
	return sm.sessions.issue()
}

// Validate checks if a session token is valid.
func (sm *SessionManager) Validate(token string) bool {
	return sm.sessions.valid(token, false)
}

// Delete ends a session.
func (sm *SessionManager) Delete(token string) {
	sm.sessions.revoke(token)
}

// AuthMiddleware returns middleware that requires a valid session cookie.
// Unauthenticated requests are redirected to /login.
func (sm *SessionManager) AuthMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(sessionCookieName); err == nil && sm.Validate(cookie.Value) {
				next(w, r)
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
		}
	}
}

// Login checks the credentials in constant time and sets a session cookie on success.
func (sm *SessionManager) Login(w http.ResponseWriter, r *http.Request, username, password, configUser, configPass string) bool {
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(configUser)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(configPass)) == 1
	if !userMatch || !passMatch {
		return false
	}

	token := sm.Create()
	if token == "" {
		return false
	}

	http.SetCookie(w, sessionCookie(r, token, int(sessionDuration.Seconds())))
	return true
}

// Logout clears the session cookie and deletes the session.
func (sm *SessionManager) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		sm.Delete(cookie.Value)
	}
	http.SetCookie(w, sessionCookie(r, "", -1))
}

func sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	}
}

// CreateCSRFToken issues a token for one login form submission.
func (sm *SessionManager) CreateCSRFToken() string {
	return sm.csrf.issue()
}

// ValidateCSRFToken checks a CSRF token and consumes it.
func (sm *SessionManager) ValidateCSRFToken(token string) bool {
	return sm.csrf.valid(token, true)
}
