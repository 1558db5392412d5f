package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowedit/pkg/flowedit"
	"github.com/randalmurphal/flowedit/pkg/flowedit/flowsync"
	"github.com/randalmurphal/flowedit/pkg/flowedit/remote"
)

func startServer(t *testing.T, configPath string) (string, <-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	errc := make(chan error, 1)
	go func() { errc <- run(ctx, configPath, ready) }()

	select {
	case addr := <-ready:
		return "http://" + addr, errc, cancel
	case err := <-errc:
		cancel()
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}
	return "", nil, cancel
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	t.Setenv("FLOWEDIT_SERVER_ADDR", "127.0.0.1:0")
	t.Setenv("FLOWEDIT_SERVER_STORE", "memory")

	base, errc, cancel := startServer(t, "")

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_SQLiteFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "flowstore.yaml")
	dbPath := filepath.Join(dir, "flows.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
server:
  addr: 127.0.0.1:0
  store: sqlite
  dsn: `+dbPath+`
  shutdown_timeout: 2s
`), 0o600))

	base, errc, cancel := startServer(t, cfgPath)
	defer func() {
		cancel()
		<-errc
	}()

	client, err := remote.New(base)
	require.NoError(t, err)
	ctx := context.Background()

	ed := flowedit.NewEditor()
	n := ed.AddNode()
	require.NoError(t, ed.UpdateNodeLabel(n.ID, "Persisted?"))
	res, err := flowsync.New(ed, client).Save(ctx)
	require.NoError(t, err)

	loaded := flowedit.NewEditor()
	require.NoError(t, flowsync.New(loaded, client).SetFlowID(ctx, res.ID))
	got, ok := loaded.Node(n.ID)
	require.True(t, ok)
	assert.Equal(t, "Persisted?", got.Data.Label)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestRun_InvalidSettings(t *testing.T) {
	t.Setenv("FLOWEDIT_SERVER_STORE", "sqlite")
	t.Setenv("FLOWEDIT_SERVER_DSN", "")

	err := run(context.Background(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server settings")
}

func TestRun_UnknownBackend(t *testing.T) {
	t.Setenv("FLOWEDIT_SERVER_ADDR", "127.0.0.1:0")
	t.Setenv("FLOWEDIT_SERVER_STORE", "bogus")

	err := run(context.Background(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}
