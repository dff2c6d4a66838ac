// Package hub fans events out to websocket clients: raw PTY output, session
// exits, chat-stream events, and agent status changes. It also routes client
// input (terminal keys, resizes, chat messages) back to callbacks.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/agentdeck/internal/agent"
	"github.com/user/agentdeck/internal/chat"
	"github.com/user/agentdeck/internal/pty"
)

const defaultBatchInterval = 100 * time.Millisecond

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	token      string
	mu         sync.RWMutex

	onPTYInput  func(sessionID, data string)
	onPTYResize func(sessionID string, cols, rows int)
	onChatSend  func(message string)

	batcher      *OutputBatcher
	batchEnabled bool
	ctxWrap      *ctxWrapper
	running      atomic.Bool
}

type ctxWrapper struct {
	ctx context.Context
}

func New(token string) *Hub {
	h := &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *Client, 16),
		unregister:   make(chan *Client, 16),
		broadcast:    make(chan []byte, 256),
		token:        token,
		batchEnabled: true,
		ctxWrap:      &ctxWrapper{ctx: context.Background()},
	}
	h.batcher = NewOutputBatcher(defaultBatchInterval, func(sessionID string, msg PTYOutputMessage) {
		h.broadcastJSON(msg)
	})
	return h
}

func (h *Hub) SetOnPTYInput(fn func(sessionID, data string)) { h.onPTYInput = fn }

func (h *Hub) SetOnPTYResize(fn func(sessionID string, cols, rows int)) { h.onPTYResize = fn }

func (h *Hub) SetOnChatSend(fn func(message string)) { h.onChatSend = fn }

func (h *Hub) SetBatchEnabled(enabled bool) {
	h.batchEnabled = enabled
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.batcher.FlushAll()
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			go client.writePump(h.getContext())
			go client.readPump(h.getContext())
			log.Printf("client connected: %s (total: %d)", client.id, h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("client disconnected: %s (total: %d)", client.id, h.ClientCount())

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- data:
				default:
					log.Printf("client %s send buffer full, dropping message", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || token != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("websocket accept error: %v", err)
		return
	}

	client := newClient(conn, h)

	select {
	case h.register <- client:
	default:
		log.Printf("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
		return
	}
}

// Output mirrors one raw PTY chunk to all clients, batched per session.
func (h *Hub) Output(ev pty.OutputEvent) {
	msg := PTYOutputMessage{Type: "pty_output", SessionID: ev.SessionID, Data: ev.Data}
	if h.batchEnabled && h.batcher != nil {
		h.batcher.Add(msg)
		return
	}
	h.broadcastJSON(msg)
}

// Exit announces session termination. Pending batched output for the
// session is flushed first so clients never see output after the exit.
func (h *Hub) Exit(ev pty.ExitEvent) {
	if h.batcher != nil {
		h.batcher.FlushSession(ev.SessionID)
	}
	h.broadcastJSON(PTYExitMessage{Type: "pty_exit", SessionID: ev.SessionID, ExitCode: ev.ExitCode})
}

// EmitStream forwards one chat-stream event. Never batched; event order is
// the protocol.
func (h *Hub) EmitStream(ev chat.StreamEvent) {
	h.broadcastJSON(ChatStreamMessage{Type: "chat_stream", Event: ev})
}

// EmitAgentStatus forwards a conversation status change.
func (h *Hub) EmitAgentStatus(ev agent.StatusEvent) {
	h.broadcastJSON(AgentStatusMessage{
		Type:      "agent_status",
		SessionID: ev.SessionID,
		Connected: ev.Connected,
		Message:   ev.Message,
		Error:     ev.Error,
	})
}

func (h *Hub) broadcastJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling message: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("broadcast channel full, dropping message")
	}
}

func (h *Hub) SendError(client *Client, message string) {
	msg := ErrorMessage{Type: "error", Message: message}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling error message: %v", err)
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) FlushPendingOutput() {
	if h.batcher != nil {
		h.batcher.FlushAll()
	}
}

func (h *Hub) handlePTYInput(sessionID, data string) {
	if h.onPTYInput != nil {
		h.onPTYInput(sessionID, data)
	}
}

func (h *Hub) handlePTYResize(sessionID string, cols, rows int) {
	if h.onPTYResize != nil {
		h.onPTYResize(sessionID, cols, rows)
	}
}

func (h *Hub) handleChatSend(message string) {
	if h.onChatSend != nil {
		h.onChatSend(message)
	}
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		log.Printf("unregister channel full for client %s, forcing close", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
