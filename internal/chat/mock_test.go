package chat

import (
	"strings"
	"sync"
	"testing"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []StreamEvent
}

func (c *captureEmitter) EmitStream(ev StreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func newTestStreamer(emitter Emitter) *Streamer {
	s := NewStreamer(emitter)
	s.CharDelay = 0
	s.NewlineDelay = 0
	s.PauseDelay = 0
	return s
}

// checkOrdering asserts the full stream ordering invariant: message_start
// first, message_stop last, content_block_start before the first delta,
// content_block_stop after the last delta, plan_update between
// content_block_stop and message_stop.
func checkOrdering(t *testing.T, events []StreamEvent) {
	t.Helper()

	if len(events) < 2 {
		t.Fatalf("expected at least start and stop, got %d events", len(events))
	}
	if events[0].Type != MessageStart {
		t.Errorf("first event = %s, want %s", events[0].Type, MessageStart)
	}
	if events[len(events)-1].Type != MessageStop {
		t.Errorf("last event = %s, want %s", events[len(events)-1].Type, MessageStop)
	}

	index := func(et EventType) int {
		for i, ev := range events {
			if ev.Type == et {
				return i
			}
		}
		return -1
	}
	lastIndex := func(et EventType) int {
		last := -1
		for i, ev := range events {
			if ev.Type == et {
				last = i
			}
		}
		return last
	}

	blockStart := index(ContentBlockStart)
	firstDelta := index(ContentBlockDelta)
	lastDelta := lastIndex(ContentBlockDelta)
	blockStop := index(ContentBlockStop)

	if firstDelta != -1 {
		if blockStart == -1 || blockStart > firstDelta {
			t.Errorf("content_block_start (%d) must precede first delta (%d)", blockStart, firstDelta)
		}
		if blockStop == -1 || blockStop < lastDelta {
			t.Errorf("content_block_stop (%d) must follow last delta (%d)", blockStop, lastDelta)
		}
	}
	if plan := index(PlanUpdate); plan != -1 {
		if blockStop == -1 || plan < blockStop {
			t.Errorf("plan_update (%d) must follow content_block_stop (%d)", plan, blockStop)
		}
		if plan > len(events)-1 || events[len(events)-1].Type != MessageStop || plan == len(events)-1 {
			t.Errorf("plan_update (%d) must precede message_stop", plan)
		}
	}
}

// TestRespondOrdering streams a plain message and checks the event order and
// that the deltas reassemble into a canned response.
func TestRespondOrdering(t *testing.T) {
	emitter := &captureEmitter{}
	newTestStreamer(emitter).Respond("hello there")

	checkOrdering(t, emitter.events)

	var text strings.Builder
	for _, ev := range emitter.events {
		if ev.Type == ContentBlockDelta {
			text.WriteString(ev.Content)
		}
	}
	want := cannedResponses[len("hello there")%len(cannedResponses)]
	if text.String() != want {
		t.Errorf("reassembled deltas = %q, want %q", text.String(), want)
	}
}

// TestRespondPlanUpdate streams "mark t1 complete" and expects a plan_update
// for node t1 with status completed, positioned per the ordering invariant.
func TestRespondPlanUpdate(t *testing.T) {
	emitter := &captureEmitter{}
	newTestStreamer(emitter).Respond("please mark t1 complete")

	checkOrdering(t, emitter.events)

	var plan *Plan
	for _, ev := range emitter.events {
		if ev.Type == PlanUpdate {
			plan = ev.Plan
		}
	}
	if plan == nil {
		t.Fatal("expected a plan_update event")
	}
	if plan.NodeID != "t1" || plan.Status != "completed" {
		t.Errorf("plan update = %+v, want node t1 completed", plan)
	}
}

// TestRespondStartCommand verifies "start t2" produces an in_progress update.
func TestRespondStartCommand(t *testing.T) {
	emitter := &captureEmitter{}
	newTestStreamer(emitter).Respond("start t2 now")

	var plan *Plan
	for _, ev := range emitter.events {
		if ev.Type == PlanUpdate {
			plan = ev.Plan
		}
	}
	if plan == nil {
		t.Fatal("expected a plan_update event")
	}
	if plan.NodeID != "t2" || plan.Status != "in_progress" {
		t.Errorf("plan update = %+v, want node t2 in_progress", plan)
	}
}

// TestPlanCommandDetection covers the command phrase matcher directly.
func TestPlanCommandDetection(t *testing.T) {
	tests := []struct {
		message string
		node    string
		status  string
		ok      bool
	}{
		{"mark t3 complete", "t3", "completed", true},
		{"begin t10", "t10", "in_progress", true},
		{"just chatting", "", "", false},
		{"mark the task complete", "", "", false},
		{"start talking", "", "", false},
	}
	for _, tt := range tests {
		node, status, ok := planCommand(tt.message)
		if node != tt.node || status != tt.status || ok != tt.ok {
			t.Errorf("planCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.message, node, status, ok, tt.node, tt.status, tt.ok)
		}
	}
}
