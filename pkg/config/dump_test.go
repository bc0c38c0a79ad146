package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/huddle/pkg/observability"
)

func TestDump(t *testing.T) {
	setRequired(t)
	t.Setenv("HUDDLE_SERVER_PORT", "8181")

	v, err := ReadViper("")
	require.NoError(t, err)

	out, err := Dump(v)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "test-secret")
	assert.NotContains(t, string(out), "huddle:huddle@")

	var settings map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &settings))
	assert.Equal(t, "8181", settings["server"]["port"])
	assert.Equal(t, "15s", settings["server"]["read_timeout"])
	assert.Equal(t, redacted, settings["auth"]["jwt_secret"])
	assert.Equal(t, redacted, settings["database"]["url"])
	assert.Equal(t, "", settings["redis"]["password"], "empty secrets stay empty")

	t.Run("output loads back as a config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dumped.yaml")
		require.NoError(t, os.WriteFile(path, out, 0600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "8181", cfg.Server.Port)
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	})
}

func TestWatch(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "huddle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0600))

	v, err := ReadViper(path)
	require.NoError(t, err)

	levels := make(chan observability.LogLevel, 4)
	errs := make(chan error, 4)
	Watch(v, func(cfg *Config) { levels <- cfg.Observability.LogLevel }, func(err error) { errs <- err })

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0600))
	select {
	case level := <-levels:
		assert.Equal(t, observability.DebugLevel, level)
	case err := <-errs:
		t.Fatalf("unexpected reload error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}
