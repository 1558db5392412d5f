package flowedit

// Node types understood by the rendering surface.
const (
	NodeTypeQuestion    = "custom"
	NodeTypePlaceholder = "default"
)

// PlaceholderID is the identifier of the synthetic node shown for an empty flow.
const PlaceholderID = "start-node"

// DefaultLabel is the label given to freshly added question nodes.
const DefaultLabel = "New Question?"

// DefaultResponses returns the response options of a freshly added node.
// A new slice is returned on every call.
func DefaultResponses() []string {
	return []string{"Yes", "No", "Other"}
}

// Position is a node's location on the canvas. It is owned by the
// rendering surface; the model stores it without interpreting it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Hooks are the per-node callbacks handed to the rendering surface.
// Each closure is bound to the identifier of the node that carries it.
// Hooks never survive serialization and are rebound by the Editor
// whenever nodes are created or the node collection is replaced.
type Hooks struct {
	OnLabelChange    func(text string) error
	OnResponseChange func(index int, text string) error
	OnDelete         func()
}

// Bound reports whether all three hooks are set.
func (h Hooks) Bound() bool {
	return h.OnLabelChange != nil && h.OnResponseChange != nil && h.OnDelete != nil
}

// Question is the payload of a question node.
type Question struct {
	ID        string   `json:"id,omitempty"`
	Label     string   `json:"label"`
	Responses []string `json:"responses"`

	// Deletable is false only for the empty-state placeholder.
	Deletable bool `json:"-"`

	Hooks Hooks `json:"-"`
}

// Node is a decision point in the flow.
//
// ID is immutable after creation. Position, Selected, Dragging, Width and
// Height belong to the rendering surface and are passed through untouched.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type,omitempty"`
	Position Position `json:"position"`
	Data     Question `json:"data"`

	Selected  bool     `json:"selected,omitempty"`
	Dragging  bool     `json:"dragging,omitempty"`
	Draggable *bool    `json:"draggable,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
}

// clone returns a deep copy; hooks are shared since closures are immutable.
func (n Node) clone() Node {
	c := n
	if n.Data.Responses != nil {
		c.Data.Responses = append([]string(nil), n.Data.Responses...)
	}
	if n.Draggable != nil {
		v := *n.Draggable
		c.Draggable = &v
	}
	if n.Width != nil {
		v := *n.Width
		c.Width = &v
	}
	if n.Height != nil {
		v := *n.Height
		c.Height = &v
	}
	return c
}

// Placeholder returns the non-deletable, non-draggable node rendered in
// place of an empty flow. It is never stored in a Flow and never persisted.
func Placeholder() Node {
	draggable := false
	return Node{
		ID:        PlaceholderID,
		Type:      NodeTypePlaceholder,
		Position:  Position{X: 300, Y: 200},
		Data:      Question{Label: "Start your flow"},
		Draggable: &draggable,
	}
}
