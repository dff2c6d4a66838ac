package agent

import (
	"context"
	"errors"

	"github.com/user/agentdeck/internal/credentials"
	"github.com/user/agentdeck/internal/pty"
	"github.com/user/agentdeck/internal/registry"

	"github.com/user/agentdeck/internal/chat"
)

var (
	// ErrUnknownAgent indicates the agent id has no launch configuration.
	ErrUnknownAgent = errors.New("agent: unknown agent")
	// ErrCredentialsMissing indicates no credentials were found for the agent.
	ErrCredentialsMissing = errors.New("agent: credentials missing")
	// ErrCLIUnavailable indicates credentials exist but the CLI binary cannot be located.
	ErrCLIUnavailable = errors.New("agent: cli unavailable")
	// ErrUnsupportedTransport indicates the agent kind does not speak over a PTY.
	ErrUnsupportedTransport = errors.New("agent: unsupported transport")
	// ErrAlreadyConnected indicates a conversation already exists; it is never silently replaced.
	ErrAlreadyConnected = errors.New("agent: already connected")
	// ErrNoActiveSession indicates no conversation is connected.
	ErrNoActiveSession = errors.New("agent: no active session")
	// ErrAlreadyStreaming indicates the previous message's completion has not been signaled.
	ErrAlreadyStreaming = errors.New("agent: already processing a message")
)

// Session is the single active agent conversation.
type Session struct {
	ID        string `json:"id"`
	AgentID   string `json:"agentType"`
	Cwd       string `json:"cwd"`
	Connected bool   `json:"connected"`
	Status    string `json:"status,omitempty"`
}

// StatusEvent is emitted on connect and disconnect.
type StatusEvent struct {
	SessionID string `json:"sessionId"`
	Connected bool   `json:"connected"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Terminal is the slice of the PTY manager the agent manager drives.
type Terminal interface {
	Create(id string) error
	Spawn(id, command string, args []string, cwd string, env []string, sink pty.Sink) error
	Write(id, data string) error
	Stop(id string)
	Remove(id string)
}

// CredentialGate is the external credential/CLI-availability collaborator.
type CredentialGate interface {
	Check(agentID string) credentials.Status
	CLICommand(agentID string) (string, error)
}

// CLIGate consults the real credential discovery.
type CLIGate struct{}

func (CLIGate) Check(agentID string) credentials.Status   { return credentials.Check(agentID) }
func (CLIGate) CLICommand(agentID string) (string, error) { return credentials.CLICommand(agentID) }

// Launcher supplies launch configuration per agent kind.
type Launcher interface {
	Get(id string) *registry.AgentConfig
}

// Emitter is the UI boundary for chat-stream and agent-status events.
type Emitter interface {
	chat.Emitter
	EmitAgentStatus(StatusEvent)
}

// History records conversation lifecycle to persistent storage. All calls
// are best-effort; a nil History disables recording.
type History interface {
	RecordConnect(ctx context.Context, sessionID, agentID, cwd, source string) error
	RecordDisconnect(ctx context.Context, sessionID string) error
}
