package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catdeal3r/xuehua/pkg/config"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
store_root: /var/lib/xuehua/store
build_root: /var/lib/xuehua/build
concurrency: 4
sandbox:
  network: false
  add_capabilities: ["CAP_NET_BIND_SERVICE"]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/xuehua/store", cfg.StoreRoot)
	assert.Equal(t, "/var/lib/xuehua/build", cfg.BuildRoot)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.False(t, cfg.Sandbox.Network)
	assert.Equal(t, []string{"CAP_NET_BIND_SERVICE"}, cfg.Sandbox.AddCapabilities)

	sc := cfg.StoreConfig()
	assert.Equal(t, filepath.Join(cfg.StoreRoot, "store.db"), sc.DBPath)
	assert.Equal(t, filepath.Join(cfg.StoreRoot, "content"), sc.ContentDir)
}

func TestLoadMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
build_root: /var/lib/xuehua/build
concurrency: 2
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsZeroConcurrency(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
store_root: /store
build_root: /build
concurrency: 0
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
store_root: /store
build_root: /build
concurrency: 1
`)

	reloaded := make(chan config.EngineConfig, 1)
	w, err := config.Watch(path, func(cfg config.EngineConfig) {
		reloaded <- cfg
	}, func(err error) {
		t.Logf("watch error: %v", err)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(path, []byte(`
store_root: /store
build_root: /build
concurrency: 8
`), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 8, cfg.Concurrency)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
