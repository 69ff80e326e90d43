package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/histline/internal/timeline"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	require.NoError(t, err, "failed to parse default config")

	assert.NotEmpty(t, cfg.Sources.Feeds)
	assert.Equal(t, timeline.GroupByCentury, cfg.Timeline.GroupBy)
	assert.Equal(t, 0.3, cfg.Timeline.MinConfidence)
	assert.Equal(t, 50, cfg.Timeline.MaxEvents)
	assert.Equal(t, 10, cfg.Timeline.MaxEventsPerNode)
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
timeline:
  group_by: dynasty
server:
  port: 9000
`)
	cfg, err := parse(data)
	require.NoError(t, err)

	assert.Equal(t, timeline.GroupByDynasty, cfg.Timeline.GroupBy)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Unspecified fields keep their defaults.
	assert.Equal(t, timeline.DefaultMaxEvents, cfg.Timeline.MaxEvents)
	assert.Equal(t, 30, cfg.Fetch.RequestsPerMinute)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestParseRejectsInvalidTimeline(t *testing.T) {
	_, err := parse([]byte("timeline:\n  group_by: decade\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, timeline.ErrConfiguration)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := parse([]byte("server: [port"))
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, DefaultConfigYAML, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Sources.Feeds)
}

func TestResolveExplicitMissing(t *testing.T) {
	_, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	assert.NotEmpty(t, cfg.GetDataDir())

	cfg.Output.DataDir = "/custom/path"
	assert.Equal(t, "/custom/path", cfg.GetDataDir())
	assert.Equal(t, filepath.Join("/custom/path", "histline.db"), cfg.DatabasePath())
}
