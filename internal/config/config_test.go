package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "app.yaml", `
log:
  level: debug
tickRate: 10ms
updateMode: event
windows:
  - title: main
    width: 800
    height: 600
  - title: tools
    width: 320
    height: 240
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Log.Level = "debug"
	want.TickRate = 10 * time.Millisecond
	want.UpdateMode = "event"
	want.Windows = []WindowConfig{
		{Title: "main", Width: 800, Height: 600},
		{Title: "tools", Width: 320, Height: 240},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "nested/out.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			in := Default()
			in.FaultPolicy = "abort"
			in.MetricsAddr = ":9090"
			require.NoError(t, WriteFile(path, in))

			var out Config
			require.NoError(t, ReadFile(path, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestLoadJSONTickRate(t *testing.T) {
	cases := map[string]time.Duration{
		`"16ms"`:   16 * time.Millisecond,
		`"1.5s"`:   1500 * time.Millisecond,
		`20000000`: 20 * time.Millisecond,
	}
	for raw, want := range cases {
		path := writeFile(t, "app.json", `{"tickRate": `+raw+`, "updateMode": "event"}`)
		cfg, err := Load(path)
		require.NoError(t, err, raw)
		assert.Equal(t, want, cfg.TickRate, raw)
		assert.Equal(t, "event", cfg.UpdateMode, raw)
		assert.Equal(t, Default().Windows, cfg.Windows, "absent fields keep defaults")
	}

	path := writeFile(t, "bad.json", `{"tickRate": "soon"}`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestWriteJSONTickRateAsString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteFile(path, Default()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tickRate": "16.667ms"`)
}

func TestUnknownExtension(t *testing.T) {
	path := writeFile(t, "app.toml", "")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, WriteFile(filepath.Join(t.TempDir(), "x.ini"), Default()), ErrInvalid)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvTickRate, "5ms")
	t.Setenv(EnvUpdateMode, "event")
	t.Setenv(EnvFaultPolicy, "abort")
	t.Setenv(EnvVSync, "false")
	t.Setenv(EnvMetricsAddr, "127.0.0.1:9100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5*time.Millisecond, cfg.TickRate)
	assert.Equal(t, "event", cfg.UpdateMode)
	assert.Equal(t, "abort", cfg.FaultPolicy)
	assert.False(t, cfg.DisableVSync)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
}

func TestBadEnvValues(t *testing.T) {
	t.Run("tick rate", func(t *testing.T) {
		t.Setenv(EnvTickRate, "fast")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalid)
	})
	t.Run("vsync", func(t *testing.T) {
		t.Setenv(EnvVSync, "maybe")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	env := writeFile(t, ".env", "FRAMECORE_UPDATE_MODE=event\nFRAMECORE_FAULT_POLICY=abort\n")
	t.Setenv(EnvFaultPolicy, "continue")
	t.Setenv(EnvUpdateMode, "")
	os.Unsetenv(EnvUpdateMode)

	cfg, err := Load("", env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "event", cfg.UpdateMode, "taken from .env")
	assert.Equal(t, "continue", cfg.FaultPolicy, "already set in the environment")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"level", func(c *Config) { c.Log.Level = "loud" }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
		{"tick", func(c *Config) { c.TickRate = 0 }},
		{"mode", func(c *Config) { c.UpdateMode = "vsync" }},
		{"policy", func(c *Config) { c.FaultPolicy = "retry" }},
		{"color", func(c *Config) { c.ClearColor[2] = 1.5 }},
		{"window", func(c *Config) { c.Windows = []WindowConfig{{Title: "w", Width: 0, Height: 10}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
			assert.True(t, errdefs.IsInvalidArgument(err))
		})
	}
}
