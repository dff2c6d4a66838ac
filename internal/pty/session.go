package pty

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	creackpty "github.com/creack/pty"
)

// Session owns one pseudo-terminal pair and, after Spawn, the child process
// attached to it. A session is created without a process; Spawn attaches at
// most one child and starts exactly one background reader for its lifetime.
type Session struct {
	id string

	mu      sync.Mutex
	ptmx    *os.File // master side, exclusive writer
	tty     *os.File // slave side, handed to the child and closed after Spawn
	cmd     *exec.Cmd
	spawned bool

	// running is the only state shared with the reader goroutine.
	running atomic.Bool
}

// newSession allocates a PTY pair at the default 24x80 geometry.
func newSession(id string) (*Session, error) {
	ptmx, tty, err := creackpty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	if err := creackpty.Setsize(ptmx, &creackpty.Winsize{Rows: DefaultRows, Cols: DefaultCols}); err != nil {
		_ = ptmx.Close()
		_ = tty.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	return &Session{id: id, ptmx: ptmx, tty: tty}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Spawn starts command inside the session's terminal. cwd and env override
// the child's working directory and environment when non-empty. On success
// the session is marked running and the reader goroutine begins forwarding
// output to sink. Spawning while a previous child is still live fails fast.
func (s *Session) Spawn(command string, args []string, cwd string, env []string, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spawned {
		return fmt.Errorf("%w: session %q already spawned", ErrSpawnFailed, s.id)
	}

	cmd := exec.Command(command, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	if len(env) > 0 {
		cmd.Env = env
	}
	cmd.Stdin = s.tty
	cmd.Stdout = s.tty
	cmd.Stderr = s.tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	// The parent keeps only the master: closing the slave here makes the
	// reader observe EOF (or EIO) once the child exits.
	_ = s.tty.Close()
	s.tty = nil

	s.cmd = cmd
	s.spawned = true
	s.running.Store(true)

	go s.readLoop(s.ptmx, sink)
	return nil
}

// readLoop blocks on master reads until the running flag is cleared, the
// child exits, or a read error occurs. Stop is cooperative: a read that is
// already blocked only observes the flag after it returns, so a hung child
// that never produces output holds this goroutine until Remove closes the
// master.
func (s *Session) readLoop(ptmx *os.File, sink Sink) {
	buf := make([]byte, 4096)
	for s.running.Load() {
		n, err := ptmx.Read(buf)
		if n > 0 {
			sink.Output(OutputEvent{
				SessionID: s.id,
				Data:      strings.ToValidUTF8(string(buf[:n]), "�"),
			})
		}
		if err != nil {
			// EOF and read errors both end the loop; no caller is
			// synchronously waiting on a read, so nothing propagates.
			break
		}
	}
	s.running.Store(false)

	// Collect the exit status if possible; never fabricate one.
	var exitCode *int
	if err := s.cmd.Wait(); err == nil {
		code := s.cmd.ProcessState.ExitCode()
		exitCode = &code
	} else if exitErr, ok := err.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		exitCode = &code
	}
	sink.Exit(ExitEvent{SessionID: s.id, ExitCode: exitCode})
}

// Write forwards data verbatim to the child's input and returns once the OS
// has accepted it. No framing or newline injection is performed.
func (s *Session) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.spawned || s.ptmx == nil {
		return fmt.Errorf("%w: session %q has no process", ErrWriteFailed, s.id)
	}
	if _, err := s.ptmx.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Resize propagates a terminal-size change to the PTY. It is purely
// informational to the child and never consults process state.
func (s *Session) Resize(rows, cols uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ptmx == nil {
		return fmt.Errorf("%w: session %q is closed", ErrResizeFailed, s.id)
	}
	if err := creackpty.Setsize(s.ptmx, &creackpty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return fmt.Errorf("%w: %v", ErrResizeFailed, err)
	}
	return nil
}

// Stop clears the running flag. The effect is advisory: the reader consults
// the flag between reads only.
func (s *Session) Stop() {
	s.running.Store(false)
}

// IsRunning reports whether the session currently has a live child.
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// close stops the session, terminates the child if present, and releases the
// terminal pair. Closing the master unblocks an in-flight read so the reader
// goroutine can finish and emit its exit event.
func (s *Session) close() {
	s.running.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
	}
	if s.ptmx != nil {
		_ = s.ptmx.Close()
		s.ptmx = nil
	}
	if s.tty != nil {
		_ = s.tty.Close()
		s.tty = nil
	}
}
