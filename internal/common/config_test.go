package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emitto.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFilesParsesDurationStrings(t *testing.T) {
	path := writeConfigFile(t, `
[pipeline]
item_delay = "5s"
cache_ttl = "168h"

[sitemap]
request_timeout = "30s"

[scraper]
request_timeout = "90s"
batch_pause = "2s"

[publisher]
request_timeout = "45s"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, config.Pipeline.ItemDelay.Std())
	assert.Equal(t, 168*time.Hour, config.Pipeline.CacheTTL.Std())
	assert.Equal(t, 30*time.Second, config.Sitemap.RequestTimeout.Std())
	assert.Equal(t, 90*time.Second, config.Scraper.RequestTimeout.Std())
	assert.Equal(t, 2*time.Second, config.Scraper.BatchPause.Std())
	assert.Equal(t, 45*time.Second, config.Publisher.RequestTimeout.Std())
}

func TestLoadFromFilesRejectsBadDuration(t *testing.T) {
	path := writeConfigFile(t, `
[pipeline]
item_delay = "five seconds"
`)

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

// The sample config shipped under deployments/ must load cleanly.
func TestLoadShippedConfig(t *testing.T) {
	path := filepath.Join("..", "..", "deployments", "local", "emitto.toml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("sample config not present: %v", err)
	}

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, config.Pipeline.ItemDelay.Std())
	assert.Equal(t, 7*24*time.Hour, config.Pipeline.CacheTTL.Std())
	assert.True(t, config.Pipeline.DryRun)
	assert.Equal(t, "0 */6 * * *", config.Pipeline.Schedule)
}

func TestLoadFromFilesLaterFileOverrides(t *testing.T) {
	base := writeConfigFile(t, `
[server]
port = 9000

[pipeline]
item_delay = "1s"
`)
	override := writeConfigFile(t, `
[pipeline]
item_delay = "10s"
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, 10*time.Second, config.Pipeline.ItemDelay.Std())
}
