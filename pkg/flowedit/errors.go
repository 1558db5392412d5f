package flowedit

import (
	"errors"
	"fmt"
)

// Sentinel errors for model mutations.
var (
	// ErrNodeNotFound indicates a mutation or connection references a node
	// that is not in the flow.
	ErrNodeNotFound = errors.New("node not found")

	// ErrIndexOutOfRange indicates a response index outside the node's
	// current response sequence.
	ErrIndexOutOfRange = errors.New("response index out of range")

	// ErrUnknownCommand indicates Dispatch received a command kind it does
	// not handle.
	ErrUnknownCommand = errors.New("unknown command")
)

// NodeError wraps a mutation error with node context.
type NodeError struct {
	// NodeID is the node the mutation targeted.
	NodeID string
	// Op is the mutation that failed (e.g., "update_response").
	Op string
	// Index is the response index for response-scoped ops, -1 otherwise.
	Index int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("node %s: %s[%d]: %v", e.NodeID, e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// ConnectionError reports a rejected connection attempt.
type ConnectionError struct {
	Source       string
	SourceHandle string
	Target       string
	Err          error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.SourceHandle != "" {
		return fmt.Sprintf("connect %s[%s] -> %s: %v", e.Source, e.SourceHandle, e.Target, e.Err)
	}
	return fmt.Sprintf("connect %s -> %s: %v", e.Source, e.Target, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func nodeErr(id, op string, index int, err error) *NodeError {
	return &NodeError{NodeID: id, Op: op, Index: index, Err: err}
}
