package sessions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	return NewSessionManager(filepath.Join(t.TempDir(), "sgscan", sessionFileName))
}

func TestServerSession_IsExpired(t *testing.T) {
	tests := []struct {
		name     string
		expiry   time.Time
		expected bool
	}{
		{name: "unknown expiry", expiry: time.Time{}, expected: false},
		{name: "future", expiry: time.Now().Add(time.Hour), expected: false},
		{name: "past", expiry: time.Now().Add(-time.Hour), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ServerSession{Expiry: tt.expiry}.IsExpired())
		})
	}
}

func TestSessionManager_AddAndReload(t *testing.T) {
	manager := newTestManager(t)
	require.NoError(t, manager.Load())

	expiry := time.Now().Add(20 * time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, manager.AddSession("acme.jamfcloud.com", ServerSession{
		URL:      "https://acme.jamfcloud.com",
		Username: "admin",
		Token:    "test-token",
		Expiry:   expiry,
	}))

	info, err := os.Stat(manager.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := NewSessionManager(manager.Path())
	require.NoError(t, reloaded.Load())

	session, err := reloaded.GetActiveSession("acme.jamfcloud.com")
	require.NoError(t, err)
	assert.Equal(t, "test-token", session.Token)
	assert.Equal(t, "admin", session.Username)
	assert.True(t, expiry.Equal(session.Expiry))
	assert.False(t, session.Created.IsZero())
}

func TestSessionManager_GetSession_NotFound(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.GetSession("unknown.example.com")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_ExpiredSession(t *testing.T) {
	manager := newTestManager(t)
	require.NoError(t, manager.AddSession("acme.jamfcloud.com", ServerSession{
		Token:  "old",
		Expiry: time.Now().Add(-time.Minute),
	}))

	_, err := manager.GetActiveSession("acme.jamfcloud.com")
	assert.ErrorIs(t, err, ErrSessionExpired)

	session, err := manager.GetSession("acme.jamfcloud.com")
	require.NoError(t, err)
	assert.Equal(t, "old", session.Token)
}

func TestSessionManager_RemoveSession(t *testing.T) {
	manager := newTestManager(t)
	require.NoError(t, manager.AddSession("a.example.com", ServerSession{Token: "a"}))
	require.NoError(t, manager.AddSession("b.example.com", ServerSession{Token: "b"}))

	require.NoError(t, manager.RemoveSession("a.example.com"))
	assert.ErrorIs(t, manager.RemoveSession("a.example.com"), ErrSessionNotFound)

	reloaded := NewSessionManager(manager.Path())
	require.NoError(t, reloaded.Load())

	sessions := reloaded.List()
	assert.Len(t, sessions, 1)
	assert.Contains(t, sessions, "b.example.com")
}

func TestSessionManager_LoadCorruptFile(t *testing.T) {
	manager := newTestManager(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(manager.Path()), 0o700))
	require.NoError(t, os.WriteFile(manager.Path(), []byte("servers: [not: a: map"), 0o600))

	require.NoError(t, manager.Load())
	assert.Empty(t, manager.List())
}

func TestSessionManager_LoadMissingFile(t *testing.T) {
	manager := newTestManager(t)

	require.NoError(t, manager.Load())
	assert.Empty(t, manager.List())
}

func TestSessionManager_ListIsCopy(t *testing.T) {
	manager := newTestManager(t)
	require.NoError(t, manager.AddSession("a.example.com", ServerSession{Token: "a"}))

	sessions := manager.List()
	delete(sessions, "a.example.com")

	_, err := manager.GetSession("a.example.com")
	assert.NoError(t, err)
}
