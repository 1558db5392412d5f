/*
Package flowedit maintains the in-memory model of a decision flow while a
user edits it.

# Overview

A flow is a directed graph of question nodes. Each node has a label and an
ordered list of response options; edges lead from a whole node, or from
one of its responses, to the next node. The rendering surface (canvas,
drag handling, minimap) lives elsewhere: it draws what the editor hands
out and sends back change batches and connection attempts.

The package has three layers:
  - Flow: the plain graph model and its mutations
  - Resolve: the connection rules that turn an attempt into an edge
  - Editor: the single owner of a Flow that all user actions go through

Persistence lives in the flowsync and remote subpackages.

# Basic Usage

	editor := flowedit.NewEditor(flowedit.WithLogger(logger))

	q1 := editor.AddNode()
	q2 := editor.AddNode()
	_ = editor.UpdateNodeLabel(q1.ID, "Do you have an account?")

	// Connect response 0 ("Yes") of q1 to q2.
	edge, err := editor.Connect(flowedit.Connection{
	    Source:       q1.ID,
	    SourceHandle: flowedit.ResponseHandle(0, "Yes"),
	    Target:       q2.ID,
	})
	// edge.Label == "Yes"

	// Deleting a node removes every edge that touches it.
	editor.DeleteNode(q2.ID)

# Hooks and Commands

Every node handed out by the editor carries Hooks: OnLabelChange,
OnResponseChange and OnDelete, each bound to that node's identifier. Hooks
do not survive serialization; the editor rebinds them whenever nodes are
added or the whole collection is replaced (Editor.Replace, used after a
remote load). Surfaces that prefer messages over closures can send a
Command to Editor.Dispatch instead; hooks are thin wrappers over it.

# Identifiers

Node identifiers are "node_<n>" with n drawn from a per-flow counter that
never decreases, so an identifier freed by deletion is never reissued.
Hydrated flows seed the counter past the highest identifier they contain.
Edge identifiers are random.

# Edge Labels

A response-scoped edge copies its label from the source handle when it is
created. Editing the response later does not change the label. Call
Flow.RelabelEdges or Editor.RelabelEdges to refresh labels explicitly.

# Errors

	err := editor.UpdateResponse("node_9", 5, "Maybe")
	if errors.Is(err, flowedit.ErrIndexOutOfRange) { ... }

	var nodeErr *flowedit.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s: %s", nodeErr.NodeID, nodeErr.Op)
	}

Deleting an unknown node is a silent no-op. Label and response edits on an
unknown node or index return an error and are logged at WARN, since they
mean the surface and the model have drifted apart.

# Thread Safety

  - Flow is NOT safe for concurrent use
  - Editor IS safe for concurrent use; mutations are serialized
  - Nodes, edges and flows returned by the editor are copies

# Subpackages

  - flowsync: load/save synchronization with the remote store
  - remote: HTTP client for the remote store
  - store, server: the reference remote store
  - event: change notifications
  - observability: logging, metrics and tracing helpers
*/
package flowedit
