// Package event carries change notifications from the editor to the
// rendering surface and other observers.
//
// Events are plain values. Publishers never block on slow subscribers
// unless the bus is configured to.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the editor and the synchronizer.
const (
	NodeAdded           = "node.added"
	NodeLabelChanged    = "node.label_changed"
	NodeResponseChanged = "node.response_changed"
	NodeResponseAdded   = "node.response_added"
	NodeResponseRemoved = "node.response_removed"
	NodeDeleted         = "node.deleted"
	NodesChanged        = "nodes.changed"
	EdgeAdded           = "edge.added"
	EdgesChanged        = "edges.changed"
	FlowReplaced        = "flow.replaced"
	FlowIDChanged       = "flow.id_changed"
	FlowSaved           = "flow.saved"
	FlowLoadFailed      = "flow.load_failed"
)

// Event describes one change to a flow.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	FlowID    string    `json:"flow_id,omitempty"`
	NodeID    string    `json:"node_id,omitempty"`
	EdgeID    string    `json:"edge_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	// Data carries a type-specific payload (label text, response index, ...).
	Data any `json:"data,omitempty"`
}

// Option configures event creation.
type Option func(*Event)

// WithNode sets the node the event is about.
func WithNode(id string) Option {
	return func(e *Event) {
		e.NodeID = id
	}
}

// WithEdge sets the edge the event is about.
func WithEdge(id string) Option {
	return func(e *Event) {
		e.EdgeID = id
	}
}

// WithData attaches a payload.
func WithData(data any) Option {
	return func(e *Event) {
		e.Data = data
	}
}

// New creates an event with a generated id and the current time.
func New(eventType, flowID string, opts ...Option) Event {
	e := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		FlowID:    flowID,
		Timestamp: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Handler receives delivered events.
type Handler func(ctx context.Context, evt Event)

// Publisher is the write side of a bus.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}
