package flowedit

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// origin places every new node at (0,0) so tests are deterministic.
func origin() Position {
	return Position{}
}

// newTestFlow returns a flow with n freshly added nodes (node_1..node_n).
func newTestFlow(t *testing.T, n int) *Flow {
	t.Helper()
	f := &Flow{}
	for i := 0; i < n; i++ {
		f.AddNode(origin())
	}
	require.Equal(t, n, f.Len())
	return f
}

// mustConnect connects and fails the test on error.
func mustConnect(t *testing.T, f *Flow, c Connection) Edge {
	t.Helper()
	e, err := f.Connect(c)
	require.NoError(t, err)
	return e
}

// nodeIDs returns the ids of nodes in order.
func nodeIDs(nodes []Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// assertNoDanglingEdges checks the referential invariant.
func assertNoDanglingEdges(t require.TestingT, f *Flow) {
	for _, e := range f.Edges() {
		_, okSource := f.Node(e.Source)
		_, okTarget := f.Node(e.Target)
		require.Truef(t, okSource && okTarget, "edge %s references missing node (%s -> %s)", e.ID, e.Source, e.Target)
	}
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
