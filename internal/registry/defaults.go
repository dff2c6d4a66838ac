package registry

// Built-in launch configurations, written out on first run so users can edit
// them in place.
var defaultAgents = []*AgentConfig{
	{
		ID:        "claude-code",
		Name:      "Claude Code",
		Command:   "claude",
		ChatArgs:  "chat --no-color",
		Transport: TransportPTY,
	},
	{
		ID:        "codex",
		Name:      "Codex",
		Command:   "codex",
		ChatArgs:  "chat",
		Transport: TransportPTY,
	},
	{
		ID:        "opencode",
		Name:      "OpenCode",
		Transport: TransportACP,
		Notes:     "speaks ACP directly; never launched through a PTY",
	},
}

func ensureDefaults(dir string) error {
	existing, err := loadDir(dir)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	r := &Registry{dir: dir, agents: make(map[string]*AgentConfig)}
	for _, cfg := range defaultAgents {
		if err := r.Save(cfg); err != nil {
			return err
		}
	}
	return nil
}
