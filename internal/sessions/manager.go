// Package sessions persists bearer tokens per Jamf Pro server so later
// runs can reuse them without credentials.
package sessions

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	sessionFileVersion = "1.0"
	sessionFileName    = "sessions.yaml"
)

var (
	ErrSessionNotFound = errors.New("no stored session for server")
	ErrSessionExpired  = errors.New("stored session has expired")
)

// ServerSession is a bearer token issued by one server.
type ServerSession struct {
	URL      string    `yaml:"url"`
	Username string    `yaml:"username,omitempty"`
	Token    string    `yaml:"token"`
	Expiry   time.Time `yaml:"expiry,omitempty"`
	Created  time.Time `yaml:"created"`
}

// IsExpired reports whether the token is past its expiry. Tokens with no
// known expiry never expire locally; the server decides.
func (s ServerSession) IsExpired() bool {
	return !s.Expiry.IsZero() && time.Now().After(s.Expiry)
}

type sessionFile struct {
	Version   string                   `yaml:"version"`
	Timestamp time.Time                `yaml:"timestamp"`
	Servers   map[string]ServerSession `yaml:"servers"`
}

// SessionManager reads and writes the session file. Servers are keyed by
// hostname (with port when not default).
type SessionManager struct {
	lock    sync.Mutex
	path    string
	Servers map[string]ServerSession
}

// DefaultPath is ~/.config/sgscan/sessions.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sgscan", sessionFileName), nil
}

func NewSessionManager(path string) *SessionManager {
	return &SessionManager{
		path:    path,
		Servers: make(map[string]ServerSession),
	}
}

func (m *SessionManager) Path() string {
	return m.path
}

// Load replaces the in-memory sessions with the file's contents. A missing
// or empty file is an empty store; an unreadable one is reset.
func (m *SessionManager) Load() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	logrus.WithField("path", m.path).Debugln("Loading stored sessions")

	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.Servers = make(map[string]ServerSession)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var file sessionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		logrus.WithError(err).WithField("path", m.path).Warnln("Failed to parse session file, starting empty")
		m.Servers = make(map[string]ServerSession)
		return nil
	}

	m.Servers = file.Servers
	if m.Servers == nil {
		m.Servers = make(map[string]ServerSession)
	}
	return nil
}

func (m *SessionManager) AddSession(hostname string, session ServerSession) error {
	logrus.WithFields(logrus.Fields{
		"server": hostname,
		"expiry": session.Expiry,
	}).Debugln("Storing server session")

	m.lock.Lock()
	defer m.lock.Unlock()

	if session.Created.IsZero() {
		session.Created = time.Now().UTC()
	}
	m.Servers[hostname] = session
	return m.commitLocked()
}

func (m *SessionManager) RemoveSession(hostname string) error {
	logrus.WithField("server", hostname).Debugln("Removing server session")

	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.Servers[hostname]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, hostname)
	}
	delete(m.Servers, hostname)
	return m.commitLocked()
}

func (m *SessionManager) GetSession(hostname string) (*ServerSession, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	session, ok := m.Servers[hostname]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, hostname)
	}
	return &session, nil
}

// GetActiveSession is GetSession that also rejects expired tokens.
func (m *SessionManager) GetActiveSession(hostname string) (*ServerSession, error) {
	session, err := m.GetSession(hostname)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, fmt.Errorf("%w: %s expired at %s", ErrSessionExpired, hostname, session.Expiry.Format(time.RFC3339))
	}
	return session, nil
}

// List returns a copy of all stored sessions.
func (m *SessionManager) List() map[string]ServerSession {
	m.lock.Lock()
	defer m.lock.Unlock()
	return maps.Clone(m.Servers)
}

// Commit writes the store to disk, readable only by the owner.
func (m *SessionManager) Commit() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.commitLocked()
}

func (m *SessionManager) commitLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	file, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)

	err = encoder.Encode(sessionFile{
		Version:   sessionFileVersion,
		Timestamp: time.Now().UTC(),
		Servers:   m.Servers,
	})
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return encoder.Close()
}
