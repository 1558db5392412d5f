package flowedit

import (
	"slices"
	"strconv"
	"strings"
)

// nodeIDPrefix prefixes generated node identifiers.
const nodeIDPrefix = "node_"

// Flow is the aggregate root: one decision tree with its nodes and edges.
//
// The zero value is an empty, never-saved flow ready to use. Flow is a
// plain value with no locking; share it between goroutines only through
// an Editor.
//
// Invariant: every edge's Source and Target name a node in the flow.
type Flow struct {
	// ID is assigned by the remote store on first save. Empty until then.
	ID string
	// Version is the store's concurrency token; 0 when unknown.
	Version int64

	nodes []Node
	edges []Edge

	// seq is the highest node sequence ever issued. It never decreases,
	// so identifiers freed by deletion are not reissued.
	seq int
}

// NewFlow hydrates a flow from persisted collections. Edges whose
// endpoints are missing are dropped, edges without an ID get one, and
// every node is marked deletable. Response-scoped edges get their response
// index from the handle, or from the response text for handles that do
// not encode one. The id generator is seeded past the
// highest "node_<n>" identifier present.
func NewFlow(id string, version int64, nodes []Node, edges []Edge) *Flow {
	f := &Flow{ID: id, Version: version}
	f.nodes = make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" || n.ID == PlaceholderID || f.indexOf(n.ID) >= 0 {
			continue
		}
		n = n.clone()
		n.Data.Deletable = true
		if n.Data.ID == "" {
			n.Data.ID = n.ID
		}
		if n.Type == "" {
			n.Type = NodeTypeQuestion
		}
		f.nodes = append(f.nodes, n)
		f.observeID(n.ID)
	}
	f.edges = make([]Edge, 0, len(edges))
	for _, e := range edges {
		if f.indexOf(e.Source) < 0 || f.indexOf(e.Target) < 0 {
			continue
		}
		e = e.clone()
		if e.ID == "" {
			e.ID = newEdgeID()
		}
		if e.SourceResponse == nil && e.SourceHandle != "" {
			index, label := ParseResponseHandle(e.SourceHandle)
			if index < 0 {
				index = f.responseIndex(e.Source, label)
			}
			if index >= 0 {
				e.SourceResponse = &index
			}
		}
		f.edges = append(f.edges, e)
	}
	return f
}

// Len returns the number of nodes.
func (f *Flow) Len() int {
	return len(f.nodes)
}

// Nodes returns a copy of the node collection.
func (f *Flow) Nodes() []Node {
	out := make([]Node, len(f.nodes))
	for i, n := range f.nodes {
		out[i] = n.clone()
	}
	return out
}

// Edges returns a copy of the edge collection.
func (f *Flow) Edges() []Edge {
	out := make([]Edge, len(f.edges))
	for i, e := range f.edges {
		out[i] = e.clone()
	}
	return out
}

// Node returns a copy of the node with the given id.
func (f *Flow) Node(id string) (Node, bool) {
	i := f.indexOf(id)
	if i < 0 {
		return Node{}, false
	}
	return f.nodes[i].clone(), true
}

// RenderNodes returns the node list to draw: the nodes themselves, or the
// placeholder alone when the flow is empty.
func (f *Flow) RenderNodes() []Node {
	if len(f.nodes) == 0 {
		return []Node{Placeholder()}
	}
	return f.Nodes()
}

// Clone returns a deep copy of the flow, including its id generator.
func (f *Flow) Clone() *Flow {
	return &Flow{
		ID:      f.ID,
		Version: f.Version,
		nodes:   f.Nodes(),
		edges:   f.Edges(),
		seq:     f.seq,
	}
}

// AddNode appends a question node at pos with a fresh identifier, the
// default label and the default responses.
func (f *Flow) AddNode(pos Position) Node {
	id := f.nextNodeID()
	n := Node{
		ID:       id,
		Type:     NodeTypeQuestion,
		Position: pos,
		Data: Question{
			ID:        id,
			Label:     DefaultLabel,
			Responses: DefaultResponses(),
			Deletable: true,
		},
	}
	f.nodes = append(f.nodes, n)
	return n.clone()
}

// UpdateNodeLabel replaces the label of node id.
func (f *Flow) UpdateNodeLabel(id, text string) error {
	i := f.indexOf(id)
	if i < 0 {
		return nodeErr(id, "update_label", -1, ErrNodeNotFound)
	}
	f.nodes[i].Data.Label = text
	return nil
}

// UpdateResponse replaces response index of node id. The flow is left
// unchanged on error.
func (f *Flow) UpdateResponse(id string, index int, text string) error {
	i := f.indexOf(id)
	if i < 0 {
		return nodeErr(id, "update_response", index, ErrNodeNotFound)
	}
	responses := f.nodes[i].Data.Responses
	if index < 0 || index >= len(responses) {
		return nodeErr(id, "update_response", index, ErrIndexOutOfRange)
	}
	next := slices.Clone(responses)
	next[index] = text
	f.nodes[i].Data.Responses = next
	return nil
}

// AddResponse appends a response option to node id and returns its index.
func (f *Flow) AddResponse(id, text string) (int, error) {
	i := f.indexOf(id)
	if i < 0 {
		return -1, nodeErr(id, "add_response", -1, ErrNodeNotFound)
	}
	next := append(slices.Clone(f.nodes[i].Data.Responses), text)
	f.nodes[i].Data.Responses = next
	return len(next) - 1, nil
}

// RemoveResponse drops response index from node id. Edges leaving from
// that response are removed; edges from later responses are renumbered
// and their handles rewritten to match the node's new handles.
// It returns the number of edges removed.
func (f *Flow) RemoveResponse(id string, index int) (int, error) {
	i := f.indexOf(id)
	if i < 0 {
		return 0, nodeErr(id, "remove_response", index, ErrNodeNotFound)
	}
	responses := f.nodes[i].Data.Responses
	if index < 0 || index >= len(responses) {
		return 0, nodeErr(id, "remove_response", index, ErrIndexOutOfRange)
	}
	next := slices.Delete(slices.Clone(responses), index, index+1)
	f.nodes[i].Data.Responses = next

	before := len(f.edges)
	kept := f.edges[:0]
	for _, e := range f.edges {
		if e.Source == id && e.SourceResponse != nil {
			switch r := *e.SourceResponse; {
			case r == index:
				continue
			case r > index:
				r--
				e.SourceResponse = &r
				e.SourceHandle = ResponseHandle(r, next[r])
			}
		}
		kept = append(kept, e)
	}
	f.edges = kept
	return before - len(kept), nil
}

// DeleteNode removes node id and every edge that references it. Deleting
// an absent id is a no-op. It reports whether a node was removed.
func (f *Flow) DeleteNode(id string) bool {
	i := f.indexOf(id)
	if i < 0 {
		return false
	}
	f.nodes = slices.Delete(f.nodes, i, i+1)
	f.edges = slices.DeleteFunc(f.edges, func(e Edge) bool {
		return e.References(id)
	})
	return true
}

// Connect resolves c and appends the resulting edge.
func (f *Flow) Connect(c Connection) (Edge, error) {
	e, err := Resolve(f, c)
	if err != nil {
		return Edge{}, err
	}
	e.ID = newEdgeID()
	f.edges = append(f.edges, e)
	return e.clone(), nil
}

// RelabelEdges refreshes the labels of response-scoped edges leaving node
// id from the node's current response text. Labels are otherwise copies
// taken at connection time. It returns the number of edges changed.
func (f *Flow) RelabelEdges(id string) int {
	i := f.indexOf(id)
	if i < 0 {
		return 0
	}
	responses := f.nodes[i].Data.Responses
	changed := 0
	for j := range f.edges {
		e := &f.edges[j]
		if e.Source != id || e.SourceResponse == nil {
			continue
		}
		r := *e.SourceResponse
		if r >= 0 && r < len(responses) && e.Label != responses[r] {
			e.Label = responses[r]
			changed++
		}
	}
	return changed
}

// BindHooks sets the hooks of every node to bind(nodeID).
func (f *Flow) BindHooks(bind func(nodeID string) Hooks) {
	for i := range f.nodes {
		f.nodes[i].Data.Hooks = bind(f.nodes[i].ID)
	}
}

func (f *Flow) bindHooks(id string, h Hooks) {
	if i := f.indexOf(id); i >= 0 {
		f.nodes[i].Data.Hooks = h
	}
}

func (f *Flow) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range f.nodes {
		if f.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *Flow) edgeIndex(id string) int {
	for i := range f.edges {
		if f.edges[i].ID == id {
			return i
		}
	}
	return -1
}

// responseIndex returns the first response of node id equal to text, or -1.
func (f *Flow) responseIndex(id, text string) int {
	i := f.indexOf(id)
	if i < 0 {
		return -1
	}
	return slices.Index(f.nodes[i].Data.Responses, text)
}

func (f *Flow) nextNodeID() string {
	for {
		f.seq++
		id := nodeIDPrefix + strconv.Itoa(f.seq)
		if f.indexOf(id) < 0 {
			return id
		}
	}
}

// observeID advances the generator past a "node_<n>" identifier.
func (f *Flow) observeID(id string) {
	suffix, ok := strings.CutPrefix(id, nodeIDPrefix)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(suffix); err == nil && n > f.seq {
		f.seq = n
	}
}
