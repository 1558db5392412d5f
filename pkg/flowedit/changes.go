package flowedit

// ChangeType identifies a layout-surface change.
type ChangeType string

// Change types emitted by the rendering surface.
const (
	ChangePosition   ChangeType = "position"
	ChangeDimensions ChangeType = "dimensions"
	ChangeSelect     ChangeType = "select"
	ChangeRemove     ChangeType = "remove"
	ChangeAdd        ChangeType = "add"
)

// NodeChange is one entry of a node change batch.
type NodeChange struct {
	Type ChangeType `json:"type"`
	ID   string     `json:"id"`

	// position
	Position *Position `json:"position,omitempty"`
	Dragging *bool     `json:"dragging,omitempty"`

	// dimensions
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	// select
	Selected bool `json:"selected,omitempty"`

	// add
	Item *Node `json:"item,omitempty"`
}

// EdgeChange is one entry of an edge change batch.
type EdgeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id"`
	Selected bool       `json:"selected,omitempty"`
	Item     *Edge      `json:"item,omitempty"`
}

// ApplyNodeChanges applies a batch in order and returns the node ids that
// were removed (edges cascade as with DeleteNode). Changes naming unknown
// nodes are skipped; the placeholder is never part of the flow, so changes
// to it are skipped too. Non-deletable nodes ignore remove.
func (f *Flow) ApplyNodeChanges(changes []NodeChange) (removed []string) {
	for _, c := range changes {
		if c.Type == ChangeAdd {
			f.addNodeItem(c.Item)
			continue
		}
		i := f.indexOf(c.ID)
		if i < 0 {
			continue
		}
		n := &f.nodes[i]
		switch c.Type {
		case ChangePosition:
			if c.Position != nil {
				n.Position = *c.Position
			}
			if c.Dragging != nil {
				n.Dragging = *c.Dragging
			}
		case ChangeDimensions:
			if c.Width != nil {
				w := *c.Width
				n.Width = &w
			}
			if c.Height != nil {
				h := *c.Height
				n.Height = &h
			}
		case ChangeSelect:
			n.Selected = c.Selected
		case ChangeRemove:
			if !n.Data.Deletable {
				continue
			}
			if f.DeleteNode(c.ID) {
				removed = append(removed, c.ID)
			}
		}
	}
	return removed
}

// addNodeItem inserts a node supplied by the surface (e.g. paste). Items
// without an id get a generated one; duplicate ids are dropped.
func (f *Flow) addNodeItem(item *Node) {
	if item == nil {
		return
	}
	n := item.clone()
	if n.ID == "" || n.ID == PlaceholderID {
		n.ID = f.nextNodeID()
	}
	if f.indexOf(n.ID) >= 0 {
		return
	}
	if n.Type == "" {
		n.Type = NodeTypeQuestion
	}
	n.Data.ID = n.ID
	n.Data.Deletable = true
	n.Data.Hooks = Hooks{}
	f.nodes = append(f.nodes, n)
	f.observeID(n.ID)
}

// ApplyEdgeChanges applies a batch in order and returns the number of
// changes that took effect. Added edges whose endpoints do not exist are
// dropped to keep the referential invariant.
func (f *Flow) ApplyEdgeChanges(changes []EdgeChange) int {
	applied := 0
	for _, c := range changes {
		switch c.Type {
		case ChangeAdd:
			if c.Item == nil || f.indexOf(c.Item.Source) < 0 || f.indexOf(c.Item.Target) < 0 {
				continue
			}
			e := c.Item.clone()
			if e.ID == "" || f.edgeIndex(e.ID) >= 0 {
				e.ID = newEdgeID()
			}
			f.edges = append(f.edges, e)
			applied++
		case ChangeSelect:
			if i := f.edgeIndex(c.ID); i >= 0 {
				f.edges[i].Selected = c.Selected
				applied++
			}
		case ChangeRemove:
			if i := f.edgeIndex(c.ID); i >= 0 {
				f.edges = append(f.edges[:i], f.edges[i+1:]...)
				applied++
			}
		}
	}
	return applied
}
