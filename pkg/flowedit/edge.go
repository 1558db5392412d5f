package flowedit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Response handles are composite tokens: "<prefix>-<index>-<text>", or the
// shorter "<prefix>-<text>" emitted by older surfaces.
const (
	HandlePrefix    = "resp"
	HandleSeparator = "-"
)

// Edge is a directed connection from a node, or from one of its responses,
// to another node.
//
// Label is copied from the source handle when the edge is created. Later
// edits to the response text do not propagate; see Flow.RelabelEdges.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	// SourceResponse is the response index the edge leaves from, when known.
	SourceResponse *int   `json:"sourceResponse,omitempty"`
	Target         string `json:"target"`
	TargetHandle   string `json:"targetHandle,omitempty"`
	Label          string `json:"label,omitempty"`
	Selected       bool   `json:"selected,omitempty"`
}

// ResponseScoped reports whether the edge leaves from a specific response.
func (e Edge) ResponseScoped() bool {
	return e.SourceHandle != ""
}

// References reports whether the edge touches the node.
func (e Edge) References(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

func (e Edge) clone() Edge {
	c := e
	if e.SourceResponse != nil {
		v := *e.SourceResponse
		c.SourceResponse = &v
	}
	return c
}

func newEdgeID() string {
	return "edge-" + uuid.New().String()
}

// ResponseHandle builds the source handle for response index i.
func ResponseHandle(i int, text string) string {
	return HandlePrefix + HandleSeparator + strconv.Itoa(i) + HandleSeparator + text
}

// ParseResponseHandle extracts the response index and label from a handle.
// index is -1 when the handle does not encode one. label is empty when the
// handle has no separator at all.
func ParseResponseHandle(handle string) (index int, label string) {
	_, rest, found := strings.Cut(handle, HandleSeparator)
	if !found {
		return -1, ""
	}
	if head, tail, ok := strings.Cut(rest, HandleSeparator); ok {
		if n, err := strconv.Atoi(head); err == nil && n >= 0 {
			return n, tail
		}
	}
	return -1, rest
}

// Connection is a connection attempt emitted by the rendering surface.
type Connection struct {
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

func (c Connection) String() string {
	return fmt.Sprintf("%s[%s] -> %s[%s]", c.Source, c.SourceHandle, c.Target, c.TargetHandle)
}

// Resolve decides whether a connection attempt is valid against f and
// builds the edge to insert. The returned edge has no ID.
//
// Both endpoints must exist. Beyond that every attempt is accepted:
// duplicates, self-loops and cycles are allowed. A whole-node connection
// (no source handle) yields an unlabeled edge; a response-scoped one is
// labeled with the text carried by the handle.
func Resolve(f *Flow, c Connection) (Edge, error) {
	if f.indexOf(c.Source) < 0 {
		return Edge{}, &ConnectionError{Source: c.Source, SourceHandle: c.SourceHandle, Target: c.Target,
			Err: fmt.Errorf("source %q: %w", c.Source, ErrNodeNotFound)}
	}
	if f.indexOf(c.Target) < 0 {
		return Edge{}, &ConnectionError{Source: c.Source, SourceHandle: c.SourceHandle, Target: c.Target,
			Err: fmt.Errorf("target %q: %w", c.Target, ErrNodeNotFound)}
	}

	e := Edge{
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
	}
	if c.SourceHandle == "" {
		return e, nil
	}

	index, label := ParseResponseHandle(c.SourceHandle)
	e.Label = label
	if index < 0 {
		index = f.responseIndex(c.Source, label)
	}
	if index >= 0 {
		e.SourceResponse = &index
	}
	return e, nil
}
