package hub

import (
	"github.com/user/agentdeck/internal/chat"
)

// PTYOutputMessage mirrors raw terminal bytes to connected UIs.
type PTYOutputMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Data      string `json:"data"`
}

// PTYExitMessage announces session termination. ExitCode is absent when the
// process status could not be collected.
type PTYExitMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	ExitCode  *int   `json:"exitCode,omitempty"`
}

// ChatStreamMessage wraps one chat-stream protocol event.
type ChatStreamMessage struct {
	Type  string           `json:"type"`
	Event chat.StreamEvent `json:"event"`
}

// AgentStatusMessage announces conversation connect/disconnect.
type AgentStatusMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Connected bool   `json:"connected"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ClientMessage is anything a UI sends over the socket.
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      string `json:"data,omitempty"`
	Cols      int    `json:"cols,omitempty"`
	Rows      int    `json:"rows,omitempty"`
	Message   string `json:"message,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
