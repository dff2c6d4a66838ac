// Package agent tracks the single active agent conversation: a
// credential-gated CLI process living inside one PTY session, plus the
// translation of its raw terminal output into ordered chat-stream events.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/agentdeck/internal/chat"
	"github.com/user/agentdeck/internal/parser"
	"github.com/user/agentdeck/internal/pty"
	"github.com/user/agentdeck/internal/registry"
)

// Manager owns the process-wide conversation state. At most one Session
// exists at a time; connect while connected is rejected rather than
// replacing the existing conversation.
//
// Locking: sessionMu guards the current session, bufMu guards the
// accumulation buffer and the open-content-block flag, and streaming is an
// atomic bool. Operations touching more than one always go session ->
// streaming -> buffer, in that order.
type Manager struct {
	term    Terminal
	gate    CredentialGate
	launch  Launcher
	emitter Emitter
	history History
	sink    pty.Sink

	sessionMu sync.Mutex
	session   *Session

	streaming atomic.Bool

	bufMu     sync.Mutex
	buffer    strings.Builder
	blockOpen bool

	now func() time.Time
}

// NewManager wires the conversation manager to its collaborators. sink
// receives the raw PTY events of the sessions this manager spawns; history
// may be nil.
func NewManager(term Terminal, gate CredentialGate, launch Launcher, emitter Emitter, history History, sink pty.Sink) *Manager {
	return &Manager{
		term:    term,
		gate:    gate,
		launch:  launch,
		emitter: emitter,
		history: history,
		sink:    sink,
		now:     time.Now,
	}
}

// Connect gates on credentials and CLI availability, then creates a PTY
// session and spawns the agent CLI in it. Any failure after the PTY session
// is created rolls it back so no dangling session is left behind.
func (m *Manager) Connect(agentID, cwd string) (*Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	if m.session != nil {
		return nil, fmt.Errorf("%w: session %q is active", ErrAlreadyConnected, m.session.ID)
	}

	cfg := m.launch.Get(agentID)
	if cfg == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agentID)
	}
	if cfg.Transport != registry.TransportPTY {
		return nil, fmt.Errorf("%w: %q uses %s", ErrUnsupportedTransport, agentID, cfg.Transport)
	}

	status := m.gate.Check(agentID)
	if !status.Found {
		msg := status.Error
		if msg == "" {
			msg = "credentials not found"
		}
		return nil, fmt.Errorf("%w: %s", ErrCredentialsMissing, msg)
	}
	if !status.CLIAvailable {
		return nil, fmt.Errorf("%w: %s CLI is not installed", ErrCLIUnavailable, cfg.Name)
	}
	cliPath, err := m.gate.CLICommand(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCLIUnavailable, err)
	}

	sessionID := fmt.Sprintf("agent_%s_%d", kindSlug(agentID), m.now().UnixMilli())

	// Two connects inside one millisecond would collide on the id; the PTY
	// registry detects the duplicate rather than assuming it cannot happen.
	if err := m.term.Create(sessionID); err != nil {
		return nil, err
	}

	args, err := cfg.ChatArgv()
	if err != nil {
		m.term.Remove(sessionID)
		return nil, fmt.Errorf("invalid launch config for %q: %w", agentID, err)
	}
	if err := m.term.Spawn(sessionID, cliPath, args, cwd, nil, m.sink); err != nil {
		m.term.Remove(sessionID)
		return nil, err
	}

	session := &Session{
		ID:        sessionID,
		AgentID:   agentID,
		Cwd:       cwd,
		Connected: true,
		Status:    "Connected",
	}
	m.session = session

	if m.history != nil {
		if err := m.history.RecordConnect(context.Background(), sessionID, agentID, cwd, status.Source); err != nil {
			slog.Warn("failed to record connect", "session_id", sessionID, "error", err)
		}
	}

	m.emitter.EmitAgentStatus(StatusEvent{
		SessionID: sessionID,
		Connected: true,
		Message:   "Connected to agent",
	})

	out := *session
	return &out, nil
}

// Disconnect stops and removes the underlying PTY session, clears the
// conversation and the streaming flag, and emits a disconnected status.
func (m *Manager) Disconnect() error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	if m.session == nil {
		return ErrNoActiveSession
	}
	sessionID := m.session.ID

	m.term.Stop(sessionID)
	m.term.Remove(sessionID)

	m.session = nil
	m.streaming.Store(false)

	if m.history != nil {
		if err := m.history.RecordDisconnect(context.Background(), sessionID); err != nil {
			slog.Warn("failed to record disconnect", "session_id", sessionID, "error", err)
		}
	}

	m.emitter.EmitAgentStatus(StatusEvent{
		SessionID: sessionID,
		Connected: false,
		Message:   "Disconnected",
	})
	return nil
}

// SendMessage submits one chat turn: it clears the accumulation buffer,
// marks the conversation streaming, writes the text (newline-terminated) to
// the PTY, and emits message_start. At most one message is in flight; the
// second SendMessage before FinishResponse fails with ErrAlreadyStreaming
// and has no side effects.
func (m *Manager) SendMessage(text string) error {
	m.sessionMu.Lock()
	session := m.session
	m.sessionMu.Unlock()
	if session == nil {
		return ErrNoActiveSession
	}

	if !m.streaming.CompareAndSwap(false, true) {
		return ErrAlreadyStreaming
	}

	m.bufMu.Lock()
	m.buffer.Reset()
	m.blockOpen = false
	m.bufMu.Unlock()

	if err := m.term.Write(session.ID, text+"\n"); err != nil {
		// The turn never started; leaving streaming set would wedge the
		// conversation.
		m.streaming.Store(false)
		return err
	}

	m.emitter.EmitStream(chat.StreamEvent{Type: chat.MessageStart})
	return nil
}

// ProcessOutput feeds one raw PTY chunk through the streaming translator:
// the chunk is accumulated verbatim, ANSI escapes are stripped, and
// non-empty cleaned text is emitted as a content_block_delta (opening the
// content block first if this is the turn's first delta). Granularity is
// whatever the PTY reader produced; no message-boundary detection happens
// here.
func (m *Manager) ProcessOutput(raw string) {
	m.bufMu.Lock()
	m.buffer.WriteString(raw)

	clean := parser.Strip(raw)
	openBlock := false
	if clean != "" && !m.blockOpen {
		m.blockOpen = true
		openBlock = true
	}
	m.bufMu.Unlock()

	if clean == "" {
		return
	}
	if openBlock {
		m.emitter.EmitStream(chat.StreamEvent{Type: chat.ContentBlockStart})
	}
	m.emitter.EmitStream(chat.StreamEvent{Type: chat.ContentBlockDelta, Content: clean})
}

// FinishResponse marks the turn complete: it clears the streaming flag
// (idempotently), closes the open content block if any, and always emits
// message_stop.
func (m *Manager) FinishResponse() {
	m.streaming.Store(false)

	m.bufMu.Lock()
	closeBlock := m.blockOpen
	m.blockOpen = false
	m.bufMu.Unlock()

	if closeBlock {
		m.emitter.EmitStream(chat.StreamEvent{Type: chat.ContentBlockStop})
	}
	m.emitter.EmitStream(chat.StreamEvent{Type: chat.MessageStop})
}

// HandleOutput routes raw PTY output belonging to the current conversation
// into ProcessOutput. Output from unrelated sessions is ignored.
func (m *Manager) HandleOutput(ev pty.OutputEvent) {
	m.sessionMu.Lock()
	match := m.session != nil && m.session.ID == ev.SessionID
	m.sessionMu.Unlock()
	if match {
		m.ProcessOutput(ev.Data)
	}
}

// CurrentSession returns a copy of the active conversation, or nil.
func (m *Manager) CurrentSession() *Session {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	if m.session == nil {
		return nil
	}
	out := *m.session
	return &out
}

// IsStreaming reports whether a response is still being produced.
func (m *Manager) IsStreaming() bool {
	return m.streaming.Load()
}

// TakeOutput returns the accumulated raw output and clears the buffer.
func (m *Manager) TakeOutput() string {
	m.bufMu.Lock()
	defer m.bufMu.Unlock()
	out := m.buffer.String()
	m.buffer.Reset()
	return out
}

// Available reports whether an agent kind could connect right now:
// credentials found and CLI installed.
func (m *Manager) Available(agentID string) bool {
	status := m.gate.Check(agentID)
	return status.Found && status.CLIAvailable
}

// kindSlug shortens an agent id for embedding in session ids:
// "claude-code" becomes "claude".
func kindSlug(agentID string) string {
	if i := strings.IndexByte(agentID, '-'); i > 0 {
		return agentID[:i]
	}
	return agentID
}
