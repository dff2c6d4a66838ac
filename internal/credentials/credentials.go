// Package credentials discovers agent CLI credentials and probes CLI
// availability. It is the gate consulted before any agent session is
// created: no credentials, no PTY.
//
// Lookup order per agent: environment overrides, credential files under the
// user's home directory, then the macOS keychain (darwin only).
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status reports the outcome of a credential check for one agent kind.
type Status struct {
	Found        bool   `json:"found"`
	Source       string `json:"source,omitempty"`
	CLIAvailable bool   `json:"cliAvailable"`
	Error        string `json:"error,omitempty"`
}

type claudeCredentials struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
	Token        string `json:"token,omitempty"`
}

type codexCredentials struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Check looks up credentials and CLI availability for the given agent id.
// Unknown agents report an error status rather than failing hard.
func Check(agentID string) Status {
	switch agentID {
	case "claude-code":
		return checkClaude()
	case "codex":
		return checkCodex()
	case "opencode":
		// OpenCode speaks ACP directly; there is no CLI credential to find.
		return Status{Found: true, Source: "acp", CLIAvailable: true}
	default:
		return Status{Error: fmt.Sprintf("unknown agent %q", agentID)}
	}
}

// CLICommand resolves the executable path for the agent's CLI.
func CLICommand(agentID string) (string, error) {
	switch agentID {
	case "claude-code":
		return lookPath("claude", "Claude Code CLI not found. Please install it first.")
	case "codex":
		return lookPath("codex", "Codex CLI not found. Please install it first.")
	case "opencode":
		return "", fmt.Errorf("opencode uses the ACP protocol directly")
	default:
		return "", fmt.Errorf("unknown agent %q", agentID)
	}
}

func lookPath(name, missing string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s", missing)
	}
	return path, nil
}

func checkClaude() Status {
	cliAvailable := commandExists("claude")

	if claudeEnvToken() != "" {
		return Status{Found: true, Source: "environment", CLIAvailable: cliAvailable}
	}
	if _, ok := readClaudeFile(); ok {
		return Status{Found: true, Source: "file", CLIAvailable: cliAvailable}
	}
	if _, ok := readClaudeKeychain(); ok {
		return Status{Found: true, Source: "keychain", CLIAvailable: cliAvailable}
	}
	return Status{
		CLIAvailable: cliAvailable,
		Error:        "No Claude Code credentials found. Please run 'claude login' first.",
	}
}

func checkCodex() Status {
	cliAvailable := commandExists("codex")

	if _, ok := readCodexFile(); ok {
		return Status{Found: true, Source: "file", CLIAvailable: cliAvailable}
	}
	if _, ok := readCodexKeychain(); ok {
		return Status{Found: true, Source: "keychain", CLIAvailable: cliAvailable}
	}
	return Status{
		CLIAvailable: cliAvailable,
		Error:        "No Codex credentials found. Please run 'codex auth' first.",
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func claudeEnvToken() string {
	for _, key := range []string{"CLAUDE_AI_SESSION_KEY", "CLAUDE_WEB_SESSION_KEY", "ANTHROPIC_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func claudeCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", ".credentials.json")
}

func codexCredentialsPath() string {
	if codexHome := os.Getenv("CODEX_HOME"); codexHome != "" {
		return filepath.Join(codexHome, "auth.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".codex", "auth.json")
}

func readClaudeFile() (claudeCredentials, bool) {
	var creds claudeCredentials
	path := claudeCredentialsPath()
	if path == "" {
		return creds, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return creds, false
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, false
	}
	return creds, true
}

func readCodexFile() (codexCredentials, bool) {
	var creds codexCredentials
	path := codexCredentialsPath()
	if path == "" {
		return creds, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return creds, false
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, false
	}
	return creds, true
}

func readClaudeKeychain() (claudeCredentials, bool) {
	var creds claudeCredentials
	raw, ok := readKeychain("Claude Code-credentials", "Claude Code")
	if !ok {
		return creds, false
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return creds, false
	}
	return creds, true
}

func readCodexKeychain() (codexCredentials, bool) {
	var creds codexCredentials
	codexHome := os.Getenv("CODEX_HOME")
	if codexHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return creds, false
		}
		codexHome = filepath.Join(home, ".codex")
	}

	hash := fmt.Sprintf("%x", accountHash(codexHome))
	if len(hash) > 16 {
		hash = hash[:16]
	}
	raw, ok := readKeychain("Codex Auth", "cli|"+hash)
	if !ok {
		return creds, false
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return creds, false
	}
	return creds, true
}

// accountHash is a stable non-cryptographic hash used only to derive the
// keychain account name from CODEX_HOME.
func accountHash(input string) uint64 {
	var hash uint64
	for _, b := range []byte(input) {
		hash = hash*31 + uint64(b)
	}
	return hash
}

// trimOutput normalizes keychain tool output.
func trimOutput(b []byte) string {
	return strings.TrimSpace(string(b))
}
