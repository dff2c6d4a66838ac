package registry

import shellquote "github.com/kballard/go-shellquote"

// Transport values an agent config may declare.
const (
	TransportPTY = "pty"
	TransportACP = "acp"
)

// AgentConfig describes how to launch one agent kind. Command is the CLI
// binary name (the resolved path comes from the credential collaborator);
// ChatArgs is the argument string appended when opening an interactive chat.
type AgentConfig struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Command   string `yaml:"command" json:"command"`
	ChatArgs  string `yaml:"chat_args,omitempty" json:"chat_args,omitempty"`
	Transport string `yaml:"transport" json:"transport"`
	Notes     string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// ChatArgv tokenizes ChatArgs with shell quoting rules.
func (c *AgentConfig) ChatArgv() ([]string, error) {
	if c.ChatArgs == "" {
		return nil, nil
	}
	return shellquote.Split(c.ChatArgs)
}
