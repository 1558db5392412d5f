package flowedit

import "fmt"

// CommandKind names a node-scoped user action.
type CommandKind string

// Command kinds accepted by Editor.Dispatch.
const (
	CommandUpdateLabel    CommandKind = "update_label"
	CommandUpdateResponse CommandKind = "update_response"
	CommandAddResponse    CommandKind = "add_response"
	CommandRemoveResponse CommandKind = "remove_response"
	CommandDelete         CommandKind = "delete"
)

// Command is a node-scoped action emitted by the rendering surface. It is
// the serializable counterpart of Hooks: a surface may either call a
// node's hooks or send commands; both reach the same editor operations.
type Command struct {
	Kind   CommandKind `json:"kind"`
	NodeID string      `json:"nodeId"`
	Index  int         `json:"index,omitempty"`
	Text   string      `json:"text,omitempty"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%s)", c.Kind, c.NodeID)
}

// Dispatch interprets cmd centrally. Delete of an unknown node is a silent
// no-op; every other kind reports ErrNodeNotFound / ErrIndexOutOfRange.
func (e *Editor) Dispatch(cmd Command) error {
	switch cmd.Kind {
	case CommandUpdateLabel:
		return e.UpdateNodeLabel(cmd.NodeID, cmd.Text)
	case CommandUpdateResponse:
		return e.UpdateResponse(cmd.NodeID, cmd.Index, cmd.Text)
	case CommandAddResponse:
		_, err := e.AddResponse(cmd.NodeID, cmd.Text)
		return err
	case CommandRemoveResponse:
		return e.RemoveResponse(cmd.NodeID, cmd.Index)
	case CommandDelete:
		e.DeleteNode(cmd.NodeID)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
}

// hooksFor builds hooks closing over nodeID; each one goes through Dispatch.
func (e *Editor) hooksFor(nodeID string) Hooks {
	return Hooks{
		OnLabelChange: func(text string) error {
			return e.Dispatch(Command{Kind: CommandUpdateLabel, NodeID: nodeID, Text: text})
		},
		OnResponseChange: func(index int, text string) error {
			return e.Dispatch(Command{Kind: CommandUpdateResponse, NodeID: nodeID, Index: index, Text: text})
		},
		OnDelete: func() {
			_ = e.Dispatch(Command{Kind: CommandDelete, NodeID: nodeID})
		},
	}
}
