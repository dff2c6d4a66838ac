package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/agentdeck/internal/agent"
	"github.com/user/agentdeck/internal/api"
	"github.com/user/agentdeck/internal/chat"
	"github.com/user/agentdeck/internal/config"
	"github.com/user/agentdeck/internal/db"
	"github.com/user/agentdeck/internal/hub"
	"github.com/user/agentdeck/internal/pty"
	"github.com/user/agentdeck/internal/registry"
	"github.com/user/agentdeck/internal/server"
)

// fanoutSink delivers raw PTY events to the websocket hub and to the
// conversation manager, which translates them into chat-stream events.
type fanoutSink struct {
	hub    *hub.Hub
	agents *agent.Manager
}

func (s *fanoutSink) Output(ev pty.OutputEvent) {
	s.hub.Output(ev)
	s.agents.HandleOutput(ev)
}

func (s *fanoutSink) Exit(ev pty.ExitEvent) {
	s.hub.Exit(ev)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	reg, err := registry.NewRegistry(cfg.AgentsDir)
	if err != nil {
		slog.Error("failed to load agent registry", "error", err)
		os.Exit(1)
	}

	h := hub.New(cfg.Token)
	go h.Run(ctx)

	term := pty.NewManager()
	defer term.Close()

	conversations := db.NewConversationRepo(database.SQL())

	sink := &fanoutSink{hub: h}
	agents := agent.NewManager(term, agent.CLIGate{}, reg, h, conversations, sink)
	sink.agents = agents

	streamer := chat.NewStreamer(h)

	h.SetOnPTYInput(func(sessionID, data string) {
		if err := term.Write(sessionID, data); err != nil {
			slog.Warn("pty write failed", "session_id", sessionID, "error", err)
		}
	})
	h.SetOnPTYResize(func(sessionID string, cols, rows int) {
		if err := term.Resize(sessionID, uint16(rows), uint16(cols)); err != nil {
			slog.Warn("pty resize failed", "session_id", sessionID, "error", err)
		}
	})
	h.SetOnChatSend(func(message string) {
		if err := agents.SendMessage(message); err != nil {
			slog.Warn("chat send failed", "error", err)
		}
	})

	apiHandler := api.NewRouter(agents, term, reg, agent.CLIGate{}, conversations, streamer, sink, cfg.Token)

	if cfg.PrintToken {
		fmt.Printf("\nagentdeck running at http://localhost:%d?token=%s\n\n", cfg.Port, cfg.Token)
	}

	srv := server.New(cfg, h, apiHandler)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
