package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowedit/pkg/flowedit/config"
)

func mapLookup(vars map[string]string) config.LookupFunc {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestExpandString(t *testing.T) {
	lookup := mapLookup(map[string]string{"HOST": "flows.internal", "PORT": "5001", "EMPTY": ""})

	tests := []struct {
		name    string
		input   string
		want    string
		missing []string
	}{
		{"no references", "http://localhost:5001", "http://localhost:5001", nil},
		{"single", "http://${HOST}", "http://flows.internal", nil},
		{"multiple", "http://${HOST}:${PORT}/api", "http://flows.internal:5001/api", nil},
		{"fallback unused", "${PORT:-80}", "5001", nil},
		{"fallback used", "${NOPE:-80}", "80", nil},
		{"empty fallback", "x${NOPE:-}y", "xy", nil},
		{"defined but empty wins over fallback", "${EMPTY:-z}", "", nil},
		{"bare dollar untouched", "pa$$word$HOST", "pa$$word$HOST", nil},
		{"undefined", "${A}/${B}", "${A}/${B}", []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.ExpandString(tt.input, lookup)
			assert.Equal(t, tt.want, got)
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var undef *config.UndefinedVariableError
			require.True(t, errors.As(err, &undef))
			assert.Equal(t, tt.missing, undef.Names)
		})
	}
}

func TestUndefinedVariableError(t *testing.T) {
	assert.Equal(t, "undefined variable: A", (&config.UndefinedVariableError{Names: []string{"A"}}).Error())
	assert.Equal(t, "undefined variables: A, B", (&config.UndefinedVariableError{Names: []string{"A", "B"}}).Error())
}

func TestConfigExpand_Nested(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
server:
  dsn: ${DATA}/flows.db
  allowed_origins:
    - http://${HOST}
    - http://localhost
  max_body_bytes: 1024
`))
	require.NoError(t, err)

	expanded, err := cfg.Expand(mapLookup(map[string]string{"DATA": "/srv", "HOST": "editor"}))
	require.NoError(t, err)
	assert.Equal(t, "/srv/flows.db", expanded.String("server.dsn", ""))
	assert.Equal(t, []string{"http://editor", "http://localhost"}, expanded.StringSlice("server.allowed_origins", nil))
	assert.Equal(t, 1024, expanded.Int("server.max_body_bytes", 0))

	// The original is not modified.
	assert.Equal(t, "${DATA}/flows.db", cfg.String("server.dsn", ""))
}

func TestLoad_ExpandsFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowedit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  dsn: ${FLOWEDIT_TEST_DATA}/flows.db\n"), 0o600))

	t.Setenv("FLOWEDIT_TEST_DATA", "/data")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/flows.db", cfg.String("server.dsn", ""))
}

func TestLoad_UndefinedVariable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowedit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  dsn: ${FLOWEDIT_SURELY_UNDEFINED}/flows.db\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLOWEDIT_SURELY_UNDEFINED")
	assert.Contains(t, err.Error(), "dsn")
}
