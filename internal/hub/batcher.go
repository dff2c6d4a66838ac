package hub

import (
	"strings"
	"sync"
	"time"
)

// OutputBatcher coalesces raw terminal output per session so high-frequency
// PTY reads do not turn into one websocket frame each. Chunks for a session
// are concatenated in arrival order, so the mirrored stream stays intact.
type OutputBatcher struct {
	mu       sync.Mutex
	pending  map[string]*pendingOutput
	interval time.Duration
	onFlush  func(sessionID string, msg PTYOutputMessage)
}

type pendingOutput struct {
	chunks []string
	timer  *time.Timer
}

func NewOutputBatcher(interval time.Duration, onFlush func(string, PTYOutputMessage)) *OutputBatcher {
	return &OutputBatcher{
		pending:  make(map[string]*pendingOutput),
		interval: interval,
		onFlush:  onFlush,
	}
}

func (b *OutputBatcher) Add(msg PTYOutputMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sessionID := msg.SessionID
	p, exists := b.pending[sessionID]
	if !exists {
		p = &pendingOutput{}
		b.pending[sessionID] = p
	}

	p.chunks = append(p.chunks, msg.Data)

	if p.timer == nil {
		p.timer = time.AfterFunc(b.interval, func() {
			b.flushSession(sessionID)
		})
	}
}

func (b *OutputBatcher) flushSession(sessionID string) {
	b.mu.Lock()
	p, exists := b.pending[sessionID]
	if !exists {
		b.mu.Unlock()
		return
	}
	delete(b.pending, sessionID)
	b.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	if b.onFlush != nil && len(p.chunks) > 0 {
		b.onFlush(sessionID, PTYOutputMessage{
			Type:      "pty_output",
			SessionID: sessionID,
			Data:      strings.Join(p.chunks, ""),
		})
	}
}

// FlushSession forces out any pending output for one session. Used before
// exit notifications so output never arrives after the exit.
func (b *OutputBatcher) FlushSession(sessionID string) {
	b.flushSession(sessionID)
}

func (b *OutputBatcher) FlushAll() {
	b.mu.Lock()
	sessions := make([]string, 0, len(b.pending))
	for s := range b.pending {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	for _, s := range sessions {
		b.flushSession(s)
	}
}
