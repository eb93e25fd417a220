package rag

import "context"

// EventType discriminates pipeline events.
type EventType string

const (
	// EventStatus marks a progress message for transient display.
	EventStatus EventType = "status"

	// EventChunk marks a fragment of the final answer.
	EventChunk EventType = "chunk"
)

// Event is one pipeline emission: either a status update or an answer
// fragment.
type Event struct {
	Type    EventType
	Content string
}

// Stream is a single-pass sequence of pipeline events. Consume Events()
// until the channel closes, then check Err() for a terminal failure; any
// chunks received before the failure remain valid. The same contract as
// bufio.Scanner: Err is meaningful only after the channel is closed.
type Stream struct {
	events chan Event
	err    error
}

func newStream(buffer int) *Stream {
	return &Stream{events: make(chan Event, buffer)}
}

// Events returns the event channel. It is closed when the pipeline
// finishes, fails, or the context is cancelled.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Err reports the failure that terminated the stream, nil on clean
// completion. Only valid after Events() is closed.
func (s *Stream) Err() error {
	return s.err
}

// send delivers an event unless the context is done first. Returns false
// when the caller should stop producing.
func (s *Stream) send(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
