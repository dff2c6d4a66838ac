package pty

import "errors"

// Default terminal geometry for freshly created sessions.
const (
	DefaultRows = 24
	DefaultCols = 80
)

var (
	// ErrOpenFailed indicates the OS could not allocate a pseudo-terminal.
	ErrOpenFailed = errors.New("pty: open failed")
	// ErrSessionExists indicates a session with the requested id is already registered.
	ErrSessionExists = errors.New("pty: session already exists")
	// ErrSessionNotFound indicates no session is registered under the requested id.
	ErrSessionNotFound = errors.New("pty: session not found")
	// ErrSpawnFailed indicates the child process could not be started.
	ErrSpawnFailed = errors.New("pty: spawn failed")
	// ErrWriteFailed indicates input could not be delivered to the child.
	ErrWriteFailed = errors.New("pty: write failed")
	// ErrResizeFailed indicates the terminal size change was rejected by the OS.
	ErrResizeFailed = errors.New("pty: resize failed")
)

// OutputEvent carries one chunk of raw terminal output, exactly as produced
// by a single read from the PTY master. Data may contain ANSI escape codes.
type OutputEvent struct {
	SessionID string `json:"sessionId"`
	Data      string `json:"data"`
}

// ExitEvent is emitted exactly once per spawned session, after its reader
// loop ends. ExitCode is nil when the exit status could not be collected.
type ExitEvent struct {
	SessionID string `json:"sessionId"`
	ExitCode  *int   `json:"exitCode,omitempty"`
}

// Sink receives session events from the background reader. Implementations
// must not block: events are fire-and-forget, delivered at most once each.
type Sink interface {
	Output(OutputEvent)
	Exit(ExitEvent)
}
