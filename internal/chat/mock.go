package chat

import (
	"fmt"
	"strings"
	"time"
)

// Canned responses for the scripted backend. The reply is picked by message
// length so the same message always gets the same answer.
var cannedResponses = []string{
	"I understand you're working on a plan. Let me help you with that. I can see your tasks and phases, and I'll do my best to assist you in making progress.",
	"Based on the current state of your plan, I notice there are some tasks that could be optimized. Would you like me to suggest some improvements?",
	"That's a great question! When working with plans, it's important to consider dependencies between tasks. Let me analyze your current setup.",
	"I've reviewed your plan structure. Here are some observations:\n\n1. Your phases are well-organized\n2. Task dependencies look logical\n3. Consider adding more granular tasks for complex items",
	"Let me help you break down this task into smaller, manageable pieces. This will make tracking progress easier and help identify bottlenecks early.",
}

const streamChunkSize = 3 // characters per content_block_delta

// Streamer is the offline chat backend: it answers messages with canned
// responses streamed through the same event contract a live agent uses.
type Streamer struct {
	emitter Emitter

	// Pacing between deltas. Zero values stream without delay (tests).
	CharDelay    time.Duration
	NewlineDelay time.Duration
	PauseDelay   time.Duration
}

// NewStreamer returns a Streamer with human-ish pacing.
func NewStreamer(emitter Emitter) *Streamer {
	return &Streamer{
		emitter:      emitter,
		CharDelay:    20 * time.Millisecond,
		NewlineDelay: 50 * time.Millisecond,
		PauseDelay:   100 * time.Millisecond,
	}
}

// Respond streams a full scripted reply to message, blocking until the final
// message_stop has been emitted. Callers wanting asynchrony run it in a
// goroutine.
func (s *Streamer) Respond(message string) {
	nodeID, status, isPlanCommand := planCommand(message)

	response := cannedResponses[len(message)%len(cannedResponses)]
	if isPlanCommand {
		verb := "start"
		if status == "completed" {
			verb = "mark as complete"
		}
		response = fmt.Sprintf("I'll %s task %s for you.\n\n%s", verb, nodeID, response)
	}

	s.emitter.EmitStream(StreamEvent{Type: MessageStart})
	s.pause()
	s.emitter.EmitStream(StreamEvent{Type: ContentBlockStart})

	chars := []rune(response)
	for i := 0; i < len(chars); i += streamChunkSize {
		end := i + streamChunkSize
		if end > len(chars) {
			end = len(chars)
		}
		chunk := string(chars[i:end])
		s.emitter.EmitStream(StreamEvent{Type: ContentBlockDelta, Content: chunk})
		if strings.ContainsRune(chunk, '\n') {
			time.Sleep(s.NewlineDelay)
		} else {
			time.Sleep(s.CharDelay)
		}
	}

	s.emitter.EmitStream(StreamEvent{Type: ContentBlockStop})

	if isPlanCommand {
		s.pause()
		s.emitter.EmitStream(StreamEvent{
			Type: PlanUpdate,
			Plan: &Plan{NodeID: nodeID, Status: status},
		})
	}

	s.pause()
	s.emitter.EmitStream(StreamEvent{Type: MessageStop})
}

func (s *Streamer) pause() {
	time.Sleep(s.PauseDelay)
}

// planCommand detects plan-mutating phrases like "mark t1 complete" or
// "start t2" and returns the referenced node id and resulting status.
func planCommand(message string) (nodeID, status string, ok bool) {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "mark") && strings.Contains(lower, "complete") {
		if id := taskWord(message); id != "" {
			return id, "completed", true
		}
	}
	if strings.Contains(lower, "start") || strings.Contains(lower, "begin") {
		if id := taskWord(message); id != "" {
			return id, "in_progress", true
		}
	}
	return "", "", false
}

// taskWord finds the first word of the form t<digits> in message.
func taskWord(message string) string {
	for _, word := range strings.Fields(message) {
		if len(word) < 2 || word[0] != 't' {
			continue
		}
		allDigits := true
		for _, c := range word[1:] {
			if c < '0' || c > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			return word
		}
	}
	return ""
}
