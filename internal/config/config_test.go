package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, time.Hour, cfg.Pipeline.CacheTTL)
	assert.Equal(t, 2, cfg.Pipeline.MaxHops)
	assert.Equal(t, 3, cfg.Pipeline.ExerciseThreshold)
	assert.Equal(t, 20, cfg.Pipeline.RecentErrorsCap)
	assert.Contains(t, cfg.DSN(), "lingokit")
}

func TestLoadOverridesAndHopClamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := `
port: 9090
env: production
redis_url: redis://cache:6379/1
pipeline:
  cache_ttl: 5m
  max_hops: 7
ai:
  providers:
    - id: main
      type: OpenAI
      api_key: sk-test
      default_model: gpt-4o-mini
      enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.CacheTTL)
	// Hop count above the traversal policy is clamped back to 2.
	assert.Equal(t, 2, cfg.Pipeline.MaxHops)

	p := cfg.AI.ActiveProvider("gpt-4o")
	require.NotNil(t, p)
	assert.Equal(t, "gpt-4o", p.DefaultModel)
}

func TestActiveProviderSkipsDisabled(t *testing.T) {
	cfg := AIConfig{Providers: []AIProvider{
		{ID: "off", Enabled: false},
		{ID: "on", Enabled: true, DefaultModel: "m"},
	}}
	p := cfg.ActiveProvider("")
	require.NotNil(t, p)
	assert.Equal(t, "on", p.ID)
	assert.Equal(t, "m", p.DefaultModel)
}
