package flowedit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/randalmurphal/flowedit/pkg/flowedit/event"
	"github.com/randalmurphal/flowedit/pkg/flowedit/observability"
)

// Editor is the single owner of a Flow and the surface every user action
// goes through: toolbar actions, layout change batches, connection
// attempts and node hooks.
//
// All methods are safe for concurrent use; mutations are serialized and
// each one applies fully or not at all. Hooks handed out with nodes call
// back into the editor, so never invoke them while holding a lock the
// editor may need.
type Editor struct {
	mu   sync.Mutex
	flow *Flow

	logger  *slog.Logger
	bus     event.Publisher
	metrics observability.MetricsRecorder
	place   func() Position
}

// NewEditor creates an editor on an empty, never-saved flow.
func NewEditor(opts ...Option) *Editor {
	e := &Editor{
		flow:    &Flow{},
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		place:   randomPlacement,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.flow.BindHooks(e.hooksFor)
	return e
}

// mutate runs fn under the lock, then records, logs and publishes outside it.
func (e *Editor) mutate(op, nodeID string, fn func(f *Flow) ([]event.Event, error)) error {
	e.mu.Lock()
	evts, err := fn(e.flow)
	e.mu.Unlock()

	e.metrics.RecordMutation(context.Background(), op, err)
	if err != nil {
		observability.LogMutationError(e.logger, op, nodeID, err)
		return err
	}
	e.publish(evts)
	return nil
}

func (e *Editor) publish(evts []event.Event) {
	if e.bus == nil {
		return
	}
	for _, evt := range evts {
		if err := e.bus.Publish(context.Background(), evt); err != nil {
			e.logger.Debug("event publish failed",
				slog.String("type", evt.Type),
				slog.String("error", err.Error()))
		}
	}
}

// AddNode appends a new question node with bound hooks and returns it.
func (e *Editor) AddNode() Node {
	var n Node
	_ = e.mutate("add_node", "", func(f *Flow) ([]event.Event, error) {
		n = f.AddNode(e.place())
		n.Data.Hooks = e.hooksFor(n.ID)
		f.bindHooks(n.ID, n.Data.Hooks)
		return []event.Event{event.New(event.NodeAdded, f.ID, event.WithNode(n.ID))}, nil
	})
	return n
}

// UpdateNodeLabel replaces the label of node id. ErrNodeNotFound is
// returned (and logged) when the node does not exist.
func (e *Editor) UpdateNodeLabel(id, text string) error {
	return e.mutate("update_label", id, func(f *Flow) ([]event.Event, error) {
		if err := f.UpdateNodeLabel(id, text); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.NodeLabelChanged, f.ID, event.WithNode(id), event.WithData(text))}, nil
	})
}

// UpdateResponse replaces one response of node id.
func (e *Editor) UpdateResponse(id string, index int, text string) error {
	return e.mutate("update_response", id, func(f *Flow) ([]event.Event, error) {
		if err := f.UpdateResponse(id, index, text); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.NodeResponseChanged, f.ID, event.WithNode(id), event.WithData(index))}, nil
	})
}

// AddResponse appends a response to node id and returns its index.
func (e *Editor) AddResponse(id, text string) (int, error) {
	var index int
	err := e.mutate("add_response", id, func(f *Flow) ([]event.Event, error) {
		var err error
		if index, err = f.AddResponse(id, text); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.NodeResponseAdded, f.ID, event.WithNode(id), event.WithData(index))}, nil
	})
	return index, err
}

// RemoveResponse drops a response of node id along with edges scoped to it.
func (e *Editor) RemoveResponse(id string, index int) error {
	return e.mutate("remove_response", id, func(f *Flow) ([]event.Event, error) {
		if _, err := f.RemoveResponse(id, index); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.NodeResponseRemoved, f.ID, event.WithNode(id), event.WithData(index))}, nil
	})
}

// DeleteNode removes node id and its edges. Unknown ids are ignored:
// cascading surface events may name nodes that are already gone.
func (e *Editor) DeleteNode(id string) bool {
	var removed bool
	_ = e.mutate("delete_node", id, func(f *Flow) ([]event.Event, error) {
		if removed = f.DeleteNode(id); !removed {
			return nil, nil
		}
		return []event.Event{event.New(event.NodeDeleted, f.ID, event.WithNode(id))}, nil
	})
	return removed
}

// Connect resolves a connection attempt and inserts the resulting edge.
func (e *Editor) Connect(c Connection) (Edge, error) {
	var edge Edge
	err := e.mutate("connect", c.Source, func(f *Flow) ([]event.Event, error) {
		var err error
		if edge, err = f.Connect(c); err != nil {
			return nil, err
		}
		return []event.Event{event.New(event.EdgeAdded, f.ID, event.WithNode(edge.Source), event.WithEdge(edge.ID))}, nil
	})
	return edge, err
}

// ApplyNodeChanges applies a layout-surface node batch. Removals cascade
// like DeleteNode. It returns the ids of removed nodes.
func (e *Editor) ApplyNodeChanges(changes []NodeChange) []string {
	var removed []string
	_ = e.mutate("node_changes", "", func(f *Flow) ([]event.Event, error) {
		removed = f.ApplyNodeChanges(changes)
		f.BindHooks(e.hooksFor)
		evts := []event.Event{event.New(event.NodesChanged, f.ID, event.WithData(len(changes)))}
		for _, id := range removed {
			evts = append(evts, event.New(event.NodeDeleted, f.ID, event.WithNode(id)))
		}
		return evts, nil
	})
	return removed
}

// ApplyEdgeChanges applies a layout-surface edge batch and returns the
// number of changes that took effect.
func (e *Editor) ApplyEdgeChanges(changes []EdgeChange) int {
	var applied int
	_ = e.mutate("edge_changes", "", func(f *Flow) ([]event.Event, error) {
		applied = f.ApplyEdgeChanges(changes)
		return []event.Event{event.New(event.EdgesChanged, f.ID, event.WithData(applied))}, nil
	})
	return applied
}

// RelabelEdges refreshes response-scoped edge labels leaving node id.
func (e *Editor) RelabelEdges(id string) int {
	var n int
	_ = e.mutate("relabel_edges", id, func(f *Flow) ([]event.Event, error) {
		if n = f.RelabelEdges(id); n == 0 {
			return nil, nil
		}
		return []event.Event{event.New(event.EdgesChanged, f.ID, event.WithNode(id), event.WithData(n))}, nil
	})
	return n
}

// Replace swaps in f wholesale and rebinds every node's hooks to this
// editor. The editor keeps its own copy of f. A nil f is ignored.
func (e *Editor) Replace(f *Flow) {
	if f == nil {
		return
	}
	next := f.Clone()
	_ = e.mutate("replace", "", func(*Flow) ([]event.Event, error) {
		next.BindHooks(e.hooksFor)
		e.flow = next
		return []event.Event{event.New(event.FlowReplaced, next.ID, event.WithData(next.Len()))}, nil
	})
}

// SetFlowID sets the governing identifier without touching nodes or edges.
func (e *Editor) SetFlowID(id string) {
	_ = e.mutate("set_id", "", func(f *Flow) ([]event.Event, error) {
		if f.ID == id {
			return nil, nil
		}
		f.ID = id
		return []event.Event{event.New(event.FlowIDChanged, id)}, nil
	})
}

// AdoptID sets the flow's identifier and version only if the current
// identifier still equals expected. It reports whether they were adopted.
// This keeps a save response from being applied to a flow that was
// replaced while the save was in flight.
func (e *Editor) AdoptID(expected, id string, version int64) bool {
	var adopted bool
	_ = e.mutate("adopt_id", "", func(f *Flow) ([]event.Event, error) {
		if f.ID != expected {
			return nil, nil
		}
		adopted = true
		changed := f.ID != id
		f.ID = id
		if version > 0 {
			f.Version = version
		}
		if !changed {
			return nil, nil
		}
		return []event.Event{event.New(event.FlowIDChanged, id)}, nil
	})
	return adopted
}

// FlowID returns the governing identifier; empty for a never-saved flow.
func (e *Editor) FlowID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flow.ID
}

// Snapshot returns a deep copy of the current flow.
func (e *Editor) Snapshot() *Flow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flow.Clone()
}

// Node returns a copy of node id with its hooks.
func (e *Editor) Node(id string) (Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flow.Node(id)
}

// Nodes returns a copy of the node collection.
func (e *Editor) Nodes() []Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flow.Nodes()
}

// Edges returns a copy of the edge collection.
func (e *Editor) Edges() []Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flow.Edges()
}

// RenderNodes returns the nodes to draw, or the placeholder when empty.
func (e *Editor) RenderNodes() []Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flow.RenderNodes()
}
