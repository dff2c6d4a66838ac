// Package api is the HTTP surface: agent conversation control, launch
// configuration, credential checks, raw PTY session management, and the
// canned chat streamer.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/user/agentdeck/internal/agent"
	"github.com/user/agentdeck/internal/chat"
	"github.com/user/agentdeck/internal/db"
	"github.com/user/agentdeck/internal/pty"
	"github.com/user/agentdeck/internal/registry"
)

type handler struct {
	agents        *agent.Manager
	term          *pty.Manager
	registry      *registry.Registry
	gate          agent.CredentialGate
	conversations *db.ConversationRepo
	streamer      *chat.Streamer
	sink          pty.Sink
}

// NewRouter assembles the API handler. conversations and streamer may be
// nil; the corresponding endpoints then report unavailability.
func NewRouter(agents *agent.Manager, term *pty.Manager, reg *registry.Registry, gate agent.CredentialGate, conversations *db.ConversationRepo, streamer *chat.Streamer, sink pty.Sink, token string) http.Handler {
	handler := &handler{
		agents:        agents,
		term:          term,
		registry:      reg,
		gate:          gate,
		conversations: conversations,
		streamer:      streamer,
		sink:          sink,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/agents", handler.listAgents)
	mux.HandleFunc("GET /api/agents/{id}", handler.getAgent)
	mux.HandleFunc("GET /api/agents/{id}/credentials", handler.getAgentCredentials)
	mux.HandleFunc("POST /api/agents/reload", handler.reloadAgents)

	mux.HandleFunc("POST /api/agent/connect", handler.connectAgent)
	mux.HandleFunc("POST /api/agent/disconnect", handler.disconnectAgent)
	mux.HandleFunc("POST /api/agent/message", handler.sendAgentMessage)
	mux.HandleFunc("POST /api/agent/finish", handler.finishAgentResponse)
	mux.HandleFunc("GET /api/agent/session", handler.getAgentSession)
	mux.HandleFunc("GET /api/agent/output", handler.getAgentOutput)

	mux.HandleFunc("POST /api/chat/message", handler.sendChatMessage)

	mux.HandleFunc("GET /api/history", handler.listHistory)

	mux.HandleFunc("POST /api/pty/sessions", handler.createPTYSession)
	mux.HandleFunc("POST /api/pty/sessions/{id}/spawn", handler.spawnPTYSession)
	mux.HandleFunc("POST /api/pty/sessions/{id}/input", handler.writePTYSession)
	mux.HandleFunc("POST /api/pty/sessions/{id}/resize", handler.resizePTYSession)
	mux.HandleFunc("DELETE /api/pty/sessions/{id}", handler.removePTYSession)

	wrapped := authMiddleware(token)(jsonMiddleware(corsMiddleware(mux)))
	return wrapped
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			writeError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}
