package pty

import (
	"fmt"
	"sync"
)

// Manager is a thread-safe registry of PTY sessions keyed by caller-supplied
// ids. The map lock is held for the duration of the lookup plus the
// delegated call; none of the delegated calls block on process I/O.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a new, empty Manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Create allocates a new PTY session under the given id. The session has no
// process yet; the caller attaches one with Spawn.
func (m *Manager) Create(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return fmt.Errorf("%w: %q", ErrSessionExists, id)
	}
	sess, err := newSession(id)
	if err != nil {
		return err
	}
	m.sessions[id] = sess
	return nil
}

// Spawn starts command inside the session's terminal and begins forwarding
// its output to sink.
func (m *Manager) Spawn(id, command string, args []string, cwd string, env []string, sink Sink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return sess.Spawn(command, args, cwd, env, sink)
}

// Write forwards data verbatim to the session's child process.
func (m *Manager) Write(id, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return sess.Write([]byte(data))
}

// Resize changes the session's terminal geometry.
func (m *Manager) Resize(id string, rows, cols uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return sess.Resize(rows, cols)
}

// Stop clears the session's running flag. Stop is advisory and idempotent:
// stopping an absent or already-stopped session succeeds.
func (m *Manager) Stop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		sess.Stop()
	}
}

// Remove stops the session (if present) and deregisters it, so a session is
// never dropped while still flagged running. Removing an absent session is a
// no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		sess.close()
		delete(m.sessions, id)
	}
}

// IsRunning reports whether the session exists and has a live child.
func (m *Manager) IsRunning(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	return ok && sess.IsRunning()
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops and removes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, sess := range m.sessions {
		sess.close()
		delete(m.sessions, id)
	}
}
