package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// markerPermissions is the permission mode for the marker file.
	markerPermissions = 0600

	// dirPermissions is the permission mode for the marker directory.
	dirPermissions = 0750

	// defaultLifetime is how long a session stays valid without renewal.
	defaultLifetime = 30 * 24 * time.Hour

	// issuer identifies tokens minted by this hub.
	issuer = "ventana-core"
)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Session is the verified sign-in state.
type Session struct {
	// UserID is the signed-in account identifier.
	UserID string

	// ExpiresAt is when the session stops being valid.
	ExpiresAt time.Time
}

// marker is the on-disk marker file format.
type marker struct {
	Token string `json:"token"`
}

// Manager owns the session marker file and the current session.
// All methods are safe for concurrent use.
type Manager struct {
	path     string
	secret   []byte
	lifetime time.Duration
	logger   Logger

	mu      sync.RWMutex
	current *Session
}

// NewManager creates a manager for the marker at path, signing tokens with
// secret. It does not touch the filesystem; call Load to restore state.
func NewManager(path string, secret []byte) *Manager {
	return &Manager{
		path:     path,
		secret:   secret,
		lifetime: defaultLifetime,
		logger:   noopLogger{},
	}
}

// SetLogger attaches a logger. Pass nil to silence the manager.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// Load restores the session from the marker file.
//
// A missing marker means anonymous and returns nil. An unreadable,
// tampered, or expired marker also resolves to anonymous; the stale marker
// is removed so the next start is clean.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading session marker: %w", err)
	}

	var mk marker
	if err := json.Unmarshal(data, &mk); err != nil {
		m.logger.Warn("session: malformed marker file, discarding", "path", m.path)
		m.removeMarker()
		return nil
	}

	sess, err := m.verify(mk.Token)
	if err != nil {
		m.logger.Warn("session: marker token rejected, discarding", "error", err)
		m.removeMarker()
		return nil
	}

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()
	m.logger.Info("session: restored", "user_id", sess.UserID)
	return nil
}

// SignIn establishes a session for userID and persists the marker.
func (m *Manager) SignIn(userID string) (Session, error) {
	if userID == "" {
		return Session{}, fmt.Errorf("%w: empty user id", ErrInvalidToken)
	}

	expires := time.Now().Add(m.lifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("signing session token: %w", err)
	}

	if err := m.writeMarker(marker{Token: token}); err != nil {
		return Session{}, err
	}

	sess := Session{UserID: userID, ExpiresAt: expires}
	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()
	m.logger.Info("session: signed in", "user_id", userID)
	return sess, nil
}

// SignOut clears the session and deletes the marker file.
// Safe to call when no session is active.
func (m *Manager) SignOut() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session marker: %w", err)
	}
	m.logger.Info("session: signed out")
	return nil
}

// Current returns the active session.
// Returns ErrNoSession when anonymous or when the session has expired.
func (m *Manager) Current() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || time.Now().After(m.current.ExpiresAt) {
		return Session{}, ErrNoSession
	}
	return *m.current, nil
}

// UserID returns the signed-in account id, or "" when anonymous.
func (m *Manager) UserID() string {
	sess, err := m.Current()
	if err != nil {
		return ""
	}
	return sess.UserID
}

// verify parses and validates a marker token.
func (m *Manager) verify(tokenStr string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Session{
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (m *Manager) writeMarker(mk marker) error {
	if err := os.MkdirAll(filepath.Dir(m.path), dirPermissions); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}
	data, err := json.Marshal(mk)
	if err != nil {
		return fmt.Errorf("encoding session marker: %w", err)
	}
	if err := os.WriteFile(m.path, data, markerPermissions); err != nil {
		return fmt.Errorf("writing session marker: %w", err)
	}
	return nil
}

func (m *Manager) removeMarker() {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("session: removing stale marker failed", "path", m.path, "error", err)
	}
}
