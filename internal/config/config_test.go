package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lineage.yaml", `
storage:
  backend: badger
  path: /var/lib/lineage
log:
  level: debug
  format: json
impact:
  depth: 3
  skipVisited: true
versions:
  limit: 25
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/lineage", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Impact.Depth)
	assert.True(t, cfg.Impact.SkipVisited)
	assert.False(t, cfg.Impact.Dedupe)
	assert.Equal(t, 25, cfg.Versions.Limit)
	// Untouched sections keep their defaults.
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestLoad_YmlExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lineage.yml", "versions:\n  limit: 7\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Versions.Limit)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lineage.yaml", "storage:\n  backend: badger\n")
	t.Setenv("LINEAGE_STORAGE_BACKEND", "sqlite")
	t.Setenv("LINEAGE_STORAGE_PATH", "/tmp/lineage.db")
	t.Setenv("LINEAGE_METRICS_ADDR", ":9100")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/lineage.db", cfg.Storage.Path)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown backend", "storage:\n  backend: redis\n", "storage.backend"},
		{"sqlite without path", "storage:\n  backend: sqlite\n", "storage.path"},
		{"postgres without dsn", "storage:\n  backend: postgres\n", "storage.dsn"},
		{"bad transport", "server:\n  transport: grpc\n", "server.transport"},
		{"zero limit", "versions:\n  limit: 0\n", "versions.limit"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "lineage.yaml", tt.body)
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lineage.yaml", "storage: [unterminated\n")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yaml", "server:\n  transport: http\n  addr: 127.0.0.1:7000\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "artifact", "doc:1")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.Contains(t, buf.String(), `"artifact":"doc:1"`)

	_, err = NewLogger(&buf, LogConfig{Format: "xml"})
	assert.Error(t, err)
	_, err = NewLogger(&buf, LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
