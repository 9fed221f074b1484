package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/domain"
)

// SessionManager hands out sessions, preferring a cached one over a new login
type SessionManager struct {
	store            domain.SessionStore
	auth             domain.Authenticator
	loginURL         string
	videoURLTemplate string
	logger           *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(store domain.SessionStore, auth domain.Authenticator, config *domain.AuthConfig, log *zap.Logger) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{
		store:            store,
		auth:             auth,
		loginURL:         config.LoginURL,
		videoURLTemplate: config.VideoURLTemplate,
		logger:           log,
	}
}

// Acquire returns the cached session when it is still usable, otherwise logs in
func (m *SessionManager) Acquire(ctx context.Context) (domain.Session, error) {
	if m.store != nil {
		if session, ok := m.store.Read(); ok {
			m.logger.Info("Using cached session")
			return session, nil
		}
	}
	return m.Login(ctx)
}

// Login always runs the browser flow against the login page
func (m *SessionManager) Login(ctx context.Context) (domain.Session, error) {
	m.logger.Info("Logging in", zap.String("url", m.loginURL))
	return m.auth.Authenticate(ctx, m.loginURL)
}

// Refresh obtains a fresh session by loading the video's page
func (m *SessionManager) Refresh(ctx context.Context, videoID string) (domain.Session, error) {
	if strings.TrimSpace(videoID) == "" {
		return domain.Session{}, fmt.Errorf("%w: empty video id", domain.ErrInvalidVideo)
	}
	target := fmt.Sprintf(m.videoURLTemplate, videoID)
	m.logger.Info("Refreshing session", zap.String("video_id", videoID))
	return m.auth.Authenticate(ctx, target)
}
