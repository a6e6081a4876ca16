package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryhazerus/tick/store"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("tickd", pflag.ContinueOnError)
	bindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newFlagSet(t), "")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "tick.yaml")
	require.NoError(t, os.WriteFile(file, []byte("store: sqlite\nkey: FROM_FILE\nlog_level: warn\n"), 0o600))

	t.Setenv("TICK_KEY", "FROM_ENV")
	t.Setenv("TICK_RESTART_POLICY", "resume")

	cfg, err := loadConfig(newFlagSet(t, "--log-level", "debug"), file)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "FROM_ENV", cfg.Key)
	assert.Equal(t, "resume", cfg.RestartPolicy)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigValidation(t *testing.T) {
	for name, args := range map[string][]string{
		"store":  {"--store", "etcd"},
		"policy": {"--restart-policy", "sometimes"},
		"key":    {"--key", ""},
		"path":   {"--path", "javacount"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig(newFlagSet(t, args...), "")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(newFlagSet(t), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := openStore(ctx, Config{Store: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	cfg := Config{Store: "tiered", SQLitePath: filepath.Join(t.TempDir(), "tick.db")}
	s, err = openStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.IsType(t, &store.TieredStore{}, s)

	_, err = openStore(ctx, Config{Store: "etcd"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("info")
	require.NoError(t, err)

	_, err = newLogger("loud")
	assert.Error(t, err)
}
