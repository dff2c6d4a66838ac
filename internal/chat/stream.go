// Package chat defines the chat-stream event contract between the agent
// backends and the UI boundary, plus an offline scripted backend used when
// no real agent CLI is connected.
//
// Every backend, live or scripted, emits events in the same order: a
// message_start first, content_block_start before the first delta,
// content_block_stop after the last delta, any plan_update between
// content_block_stop and message_stop, and message_stop last.
package chat

// EventType discriminates the chat-stream event union.
type EventType string

const (
	MessageStart      EventType = "message_start"
	ContentBlockStart EventType = "content_block_start"
	ContentBlockDelta EventType = "content_block_delta"
	ContentBlockStop  EventType = "content_block_stop"
	MessageStop       EventType = "message_stop"
	PlanUpdate        EventType = "plan_update"
)

// Plan is the payload of a plan_update event: a target plan node plus an
// optional status and/or content change.
type Plan struct {
	NodeID  string `json:"nodeId"`
	Status  string `json:"status,omitempty"`
	Content string `json:"content,omitempty"`
}

// StreamEvent is one member of the chat-stream union. Content is set only
// for content_block_delta, Plan only for plan_update; no event carries more
// than one payload kind.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Plan    *Plan     `json:"planUpdate,omitempty"`
}

// Emitter forwards stream events to the UI boundary. Delivery is
// fire-and-forget, at most once per event.
type Emitter interface {
	EmitStream(StreamEvent)
}
