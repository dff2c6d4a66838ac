package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/user/agentdeck/internal/agent"
	"github.com/user/agentdeck/internal/chat"
	"github.com/user/agentdeck/internal/credentials"
	"github.com/user/agentdeck/internal/db"
	"github.com/user/agentdeck/internal/pty"
	"github.com/user/agentdeck/internal/registry"
)

// stubTerminal satisfies the agent manager's terminal needs without
// spawning real processes.
type stubTerminal struct {
	created map[string]bool
	writes  []string
}

func newStubTerminal() *stubTerminal {
	return &stubTerminal{created: make(map[string]bool)}
}

func (s *stubTerminal) Create(id string) error {
	if s.created[id] {
		return errors.New("session exists")
	}
	s.created[id] = true
	return nil
}

func (s *stubTerminal) Spawn(id, command string, args []string, cwd string, env []string, sink pty.Sink) error {
	return nil
}

func (s *stubTerminal) Write(id, data string) error {
	s.writes = append(s.writes, data)
	return nil
}

func (s *stubTerminal) Stop(id string)   {}
func (s *stubTerminal) Remove(id string) { delete(s.created, id) }

type stubGate struct {
	statuses map[string]credentials.Status
}

func (s *stubGate) Check(agentID string) credentials.Status {
	return s.statuses[agentID]
}

func (s *stubGate) CLICommand(agentID string) (string, error) {
	return "/usr/local/bin/" + agentID, nil
}

type nopSink struct{}

func (nopSink) Output(pty.OutputEvent) {}
func (nopSink) Exit(pty.ExitEvent)     {}

type discardEmitter struct {
	mu     sync.Mutex
	stream []chat.StreamEvent
}

func (d *discardEmitter) EmitStream(ev chat.StreamEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stream = append(d.stream, ev)
}

func (d *discardEmitter) EmitAgentStatus(agent.StatusEvent) {}

func (d *discardEmitter) lastType() (chat.EventType, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.stream) == 0 {
		return "", false
	}
	return d.stream[len(d.stream)-1].Type, true
}

type apiFixture struct {
	handler http.Handler
	term    *pty.Manager
	emitter *discardEmitter
}

func openAPI(t *testing.T) *apiFixture {
	t.Helper()

	reg, err := registry.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	gate := &stubGate{statuses: map[string]credentials.Status{
		"claude-code": {Found: true, Source: "env", CLIAvailable: true},
		"codex":       {Found: false, Error: "no credentials found"},
	}}

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	conversations := db.NewConversationRepo(database.SQL())

	emitter := &discardEmitter{}
	agents := agent.NewManager(newStubTerminal(), gate, reg, emitter, conversations, nil)

	term := pty.NewManager()
	t.Cleanup(term.Close)

	streamer := chat.NewStreamer(emitter)
	streamer.CharDelay = 0
	streamer.NewlineDelay = 0
	streamer.PauseDelay = 0

	return &apiFixture{
		handler: NewRouter(agents, term, reg, gate, conversations, streamer, nopSink{}, "test-token"),
		term:    term,
		emitter: emitter,
	}
}

func apiRequest(t *testing.T, h http.Handler, method, path string, body any, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer test-token")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware(t *testing.T) {
	f := openAPI(t)

	rr := apiRequest(t, f.handler, http.MethodGet, "/api/agents", nil, false)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated request: status = %d, want 401", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodGet, "/api/agents", nil, true)
	if rr.Code != http.StatusOK {
		t.Errorf("bearer token request: status = %d, want 200", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodGet, "/api/agents?token=test-token", nil, false)
	if rr.Code != http.StatusOK {
		t.Errorf("query token request: status = %d, want 200", rr.Code)
	}
}

func TestListAgentsReportsAvailability(t *testing.T) {
	f := openAPI(t)

	rr := apiRequest(t, f.handler, http.MethodGet, "/api/agents", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var items []agentListItem
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3 default agents", len(items))
	}

	byID := map[string]agentListItem{}
	for _, item := range items {
		byID[item.ID] = item
	}
	if !byID["claude-code"].Available {
		t.Error("claude-code should be available")
	}
	if byID["codex"].Available {
		t.Error("codex should be unavailable without credentials")
	}
}

func TestGetAgentCredentials(t *testing.T) {
	f := openAPI(t)

	rr := apiRequest(t, f.handler, http.MethodGet, "/api/agents/codex/credentials", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var status credentials.Status
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status.Found || status.Error != "no credentials found" {
		t.Errorf("status = %+v", status)
	}
}

func TestGetUnknownAgent(t *testing.T) {
	f := openAPI(t)

	rr := apiRequest(t, f.handler, http.MethodGet, "/api/agents/mystery", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestConversationEndpoints(t *testing.T) {
	f := openAPI(t)

	// no session yet
	rr := apiRequest(t, f.handler, http.MethodGet, "/api/agent/session", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("session before connect: status = %d, want 404", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/connect", connectRequest{AgentType: "claude-code", Cwd: "/tmp"}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("connect: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var session agent.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &session); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if session.AgentID != "claude-code" || !session.Connected {
		t.Errorf("session = %+v", session)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/connect", connectRequest{AgentType: "codex"}, true)
	if rr.Code != http.StatusConflict {
		t.Errorf("second connect: status = %d, want 409", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/message", messageRequest{Message: "hi"}, true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("message: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/message", messageRequest{Message: "again"}, true)
	if rr.Code != http.StatusConflict {
		t.Errorf("message while streaming: status = %d, want 409", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/finish", nil, true)
	if rr.Code != http.StatusOK {
		t.Errorf("finish: status = %d", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/disconnect", nil, true)
	if rr.Code != http.StatusNoContent {
		t.Errorf("disconnect: status = %d, want 204", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/disconnect", nil, true)
	if rr.Code != http.StatusConflict {
		t.Errorf("disconnect without session: status = %d, want 409", rr.Code)
	}
}

func TestConnectValidation(t *testing.T) {
	f := openAPI(t)

	rr := apiRequest(t, f.handler, http.MethodPost, "/api/agent/connect", connectRequest{}, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing agentType: status = %d, want 400", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/connect", connectRequest{AgentType: "mystery"}, true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown agent: status = %d, want 404", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/connect", connectRequest{AgentType: "codex"}, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing credentials: status = %d, want 400", rr.Code)
	}
}

func TestChatMessageStreamsCannedResponse(t *testing.T) {
	f := openAPI(t)

	rr := apiRequest(t, f.handler, http.MethodPost, "/api/chat/message", messageRequest{Message: "hello"}, true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if last, ok := f.emitter.lastType(); ok && last == chat.MessageStop {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("canned response never completed")
}

func TestHistoryEndpoint(t *testing.T) {
	f := openAPI(t)

	rr := apiRequest(t, f.handler, http.MethodPost, "/api/agent/connect", connectRequest{AgentType: "claude-code"}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("connect: status = %d", rr.Code)
	}
	rr = apiRequest(t, f.handler, http.MethodPost, "/api/agent/disconnect", nil, true)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("disconnect: status = %d", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodGet, "/api/history", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("history: status = %d", rr.Code)
	}

	var conversations []db.Conversation
	if err := json.Unmarshal(rr.Body.Bytes(), &conversations); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(conversations) != 1 || conversations[0].AgentID != "claude-code" {
		t.Fatalf("conversations = %+v", conversations)
	}
	if conversations[0].DisconnectedAt == nil {
		t.Error("conversation not marked disconnected")
	}

	rr = apiRequest(t, f.handler, http.MethodGet, "/api/history?limit=bogus", nil, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rr.Code)
	}
}

func TestPTYSessionEndpoints(t *testing.T) {
	f := openAPI(t)

	rr := apiRequest(t, f.handler, http.MethodPost, "/api/pty/sessions", createPTYRequest{ID: "term-1"}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/pty/sessions", createPTYRequest{ID: "term-1"}, true)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate create: status = %d, want 409", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/pty/sessions/term-1/spawn", spawnPTYRequest{Command: "cat"}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("spawn: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/pty/sessions/term-1/input", writePTYRequest{Data: "hello\n"}, true)
	if rr.Code != http.StatusNoContent {
		t.Errorf("input: status = %d, want 204", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/pty/sessions/term-1/resize", resizePTYRequest{Rows: 40, Cols: 120}, true)
	if rr.Code != http.StatusNoContent {
		t.Errorf("resize: status = %d, want 204", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodPost, "/api/pty/sessions/ghost/input", writePTYRequest{Data: "x"}, true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("input to unknown session: status = %d, want 404", rr.Code)
	}

	rr = apiRequest(t, f.handler, http.MethodDelete, "/api/pty/sessions/term-1", nil, true)
	if rr.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", rr.Code)
	}
	if f.term.Count() != 0 {
		t.Errorf("session count = %d after delete, want 0", f.term.Count())
	}
}
