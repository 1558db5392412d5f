package flowedit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// randomOps drives f through a random sequence of mutations and returns
// every node id ever issued.
func randomOps(t *rapid.T, f *Flow) map[string]bool {
	issued := make(map[string]bool)
	for _, n := range f.Nodes() {
		issued[n.ID] = true
	}
	pickID := func(label string) string {
		if f.Len() == 0 || rapid.Bool().Draw(t, label+"_missing") {
			return "node_" + rapid.StringMatching(`[0-9]{1,3}`).Draw(t, label+"_raw")
		}
		nodes := f.Nodes()
		return nodes[rapid.IntRange(0, len(nodes)-1).Draw(t, label)].ID
	}

	steps := rapid.IntRange(1, 60).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		switch rapid.IntRange(0, 6).Draw(t, "op") {
		case 0, 1:
			n := f.AddNode(origin())
			require.Falsef(t, issued[n.ID], "id %s reissued", n.ID)
			issued[n.ID] = true
		case 2:
			f.DeleteNode(pickID("delete"))
		case 3:
			handle := ""
			if rapid.Bool().Draw(t, "scoped") {
				handle = ResponseHandle(rapid.IntRange(0, 3).Draw(t, "resp"), "Yes")
			}
			_, _ = f.Connect(Connection{Source: pickID("src"), SourceHandle: handle, Target: pickID("dst")})
		case 4:
			_ = f.UpdateResponse(pickID("update"), rapid.IntRange(-1, 4).Draw(t, "index"), rapid.String().Draw(t, "text"))
		case 5:
			_, _ = f.RemoveResponse(pickID("remove"), rapid.IntRange(-1, 3).Draw(t, "index"))
		case 6:
			f.ApplyNodeChanges([]NodeChange{{Type: ChangeRemove, ID: pickID("change")}})
		}
		assertNoDanglingEdges(t, f)
	}
	return issued
}

func TestProperty_NoDanglingEdges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		randomOps(t, &Flow{})
	})
}

func TestProperty_HydratedFlowNeverReissuesIDs(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		src := &Flow{}
		randomOps(t, src)

		f := NewFlow("flow-1", 1, src.Nodes(), src.Edges())
		require.Equal(t, src.Len(), f.Len())
		require.Equal(t, len(src.Edges()), len(f.Edges()))
		randomOps(t, f)
	})
}

func TestProperty_DeleteIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := &Flow{}
		randomOps(t, f)
		if f.Len() == 0 {
			return
		}
		nodes := f.Nodes()
		id := nodes[rapid.IntRange(0, len(nodes)-1).Draw(t, "victim")].ID

		require.True(t, f.DeleteNode(id))
		afterNodes, afterEdges := f.Nodes(), f.Edges()
		require.False(t, f.DeleteNode(id))
		require.Equal(t, afterNodes, f.Nodes())
		require.Equal(t, afterEdges, f.Edges())
	})
}

func TestProperty_EditsKeepIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newTestFlowRapid(t, rapid.IntRange(1, 8).Draw(t, "n"))
		before := nodeIDs(f.Nodes())

		for i := 0; i < 20; i++ {
			id := before[rapid.IntRange(0, len(before)-1).Draw(t, "node")]
			if rapid.Bool().Draw(t, "label") {
				require.NoError(t, f.UpdateNodeLabel(id, rapid.String().Draw(t, "text")))
			} else {
				require.NoError(t, f.UpdateResponse(id, rapid.IntRange(0, 2).Draw(t, "index"), rapid.String().Draw(t, "text")))
			}
		}
		require.Equal(t, before, nodeIDs(f.Nodes()))
	})
}

func newTestFlowRapid(t *rapid.T, n int) *Flow {
	f := &Flow{}
	for i := 0; i < n; i++ {
		f.AddNode(origin())
	}
	require.Equal(t, n, f.Len())
	return f
}
