package socketioevents

import (
	"context"
	"encoding/json"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/events"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the socket.io event name build events are emitted under.
const DefaultEvent = "build_event"

// Sink emits every build event on a connected socket.
type Sink struct {
	io    *socket.Socket
	event string
}

var _ events.Sink = (*Sink)(nil)

// New dials the server and returns a sink emitting under eventName, or
// DefaultEvent when it is empty.
func New(ctx context.Context, o DialOptions, eventName string) (*Sink, error) {
	io, err := Dial(ctx, o)
	if err != nil {
		return nil, err
	}
	if eventName == "" {
		eventName = DefaultEvent
	}
	return &Sink{io: io, event: eventName}, nil
}

// Publish emits the event as a JSON object. The client queues the packet,
// so Publish never waits on the network.
func (s *Sink) Publish(ctx context.Context, e events.Event) {
	payload, err := payloadOf(e)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to encode build event for socket.io.", "kind", e.Kind, "error", err)
		return
	}
	s.io.Emit(s.event, payload)
}

// Close disconnects the socket.
func (s *Sink) Close() error {
	s.io.Disconnect()
	return nil
}

// payloadOf converts an event into the generic map the socket.io parser
// serializes.
func payloadOf(e events.Event) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
