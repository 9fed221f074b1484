package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/destream-go/internal/domain"
)

type fakeAuthenticator struct {
	targets []string
	session domain.Session
	err     error
}

func (a *fakeAuthenticator) Authenticate(ctx context.Context, target string) (domain.Session, error) {
	a.targets = append(a.targets, target)
	return a.session, a.err
}

func newTestSessionManager(store domain.SessionStore, auth domain.Authenticator) *SessionManager {
	config := domain.DefaultConfig().Auth
	return NewSessionManager(store, auth, &config, nil)
}

func TestSessionManager_AcquireUsesCache(t *testing.T) {
	store := &memoryStore{session: testSession, ok: true}
	auth := &fakeAuthenticator{}

	session, err := newTestSessionManager(store, auth).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSession, session)
	assert.Empty(t, auth.targets)
}

func TestSessionManager_AcquireLogsInWithoutCache(t *testing.T) {
	auth := &fakeAuthenticator{session: testSession}

	session, err := newTestSessionManager(&memoryStore{}, auth).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSession, session)
	assert.Equal(t, []string{testLoginURL}, auth.targets)
}

func TestSessionManager_LoginError(t *testing.T) {
	auth := &fakeAuthenticator{err: domain.ErrCredentialsRequired}

	_, err := newTestSessionManager(&memoryStore{}, auth).Login(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsRequired)
	assert.Equal(t, domain.ExitNoSessionInfo, domain.ExitCodeFor(err))
}

func TestSessionManager_RefreshTargetsVideoPage(t *testing.T) {
	auth := &fakeAuthenticator{session: testSession}
	m := newTestSessionManager(&memoryStore{}, auth)

	_, err := m.Refresh(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://web.microsoftstream.com/video/abc-123"}, auth.targets)

	_, err = m.Refresh(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidVideo)
	assert.Len(t, auth.targets, 1)
}
