package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/domain"
)

// FileSessionStore persists the session as a JSON file readable only by the user
type FileSessionStore struct {
	path        string
	minValidity time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewFileSessionStore creates a session store at path. Cached sessions whose
// token expires within minValidity are treated as absent.
func NewFileSessionStore(path string, minValidity time.Duration, log *zap.Logger) *FileSessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSessionStore{
		path:        path,
		minValidity: minValidity,
		logger:      log,
		now:         time.Now,
	}
}

// Path returns the cache file location
func (s *FileSessionStore) Path() string {
	return s.path
}

// Read returns the cached session. A missing, corrupt, incomplete or
// expiring cache is reported as absent, never as an error.
func (s *FileSessionStore) Read() (domain.Session, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read session cache", zap.String("path", s.path), zap.Error(err))
		}
		return domain.Session{}, false
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Warn("Ignoring corrupt session cache", zap.String("path", s.path), zap.Error(err))
		return domain.Session{}, false
	}
	if err := session.Validate(); err != nil {
		s.logger.Warn("Ignoring incomplete session cache", zap.String("path", s.path), zap.Error(err))
		return domain.Session{}, false
	}

	if expiry, ok := TokenExpiry(session.AccessToken); ok {
		if remaining := expiry.Sub(s.now()); remaining < s.minValidity {
			s.logger.Info("Cached session expired or about to expire",
				zap.Time("expires_at", expiry),
				zap.Duration("remaining", remaining))
			return domain.Session{}, false
		}
	}

	return session, true
}

// Write replaces the cached session
func (s *FileSessionStore) Write(session domain.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("refusing to cache invalid session: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session cache directory: %w", err)
	}

	// Replace atomically
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace session cache: %w", err)
	}

	s.logger.Debug("Session cached", zap.String("path", s.path))
	return nil
}

// TokenExpiry reads the exp claim of a JWT access token without verifying
// its signature. Opaque tokens report ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
