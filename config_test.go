package truetime

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigToml = `
[NTP]
Servers = ["a.example.org", "b.example.org"]
TimeoutMs = 250
MaxRequests = 2

[Sync]
Source = "nts"
ResyncOnSystemEvent = true

[Watcher]
PollIntervalMs = 500

[API]
Address = ":9000"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfigToml))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.example.org", "b.example.org"}, cfg.NTP.Servers)
	assert.Equal(t, 250, cfg.NTP.TimeoutMs)
	assert.Equal(t, 2, cfg.NTP.MaxRequests)
	assert.Equal(t, SOURCE_NTS, cfg.Sync.Source)
	assert.True(t, cfg.Sync.ResyncOnSystemEvent)
	assert.Equal(t, ":9000", cfg.API.Address)
	//Missing keys keep defaults
	assert.Equal(t, "*:INFO", cfg.API.LogLevel)
	assert.Equal(t, DEFAULTLOCALTIMEPATH, cfg.Watcher.LocaltimePath)

	w := cfg.WatcherConfig()
	assert.Equal(t, 500*time.Millisecond, w.PollInterval)
	assert.Equal(t, DEFAULTJUMPTHRESHOLD, w.JumpThreshold)
	assert.Equal(t, DEFAULTCONNECTIVITYDEBOUNCE, w.ConnectivityDebounce)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("[Sync]\nSource = \"gps\"\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("[NTP]\nTimeoutMs = -1\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("[NTP\n"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "truetime.toml")
	require.NoError(t, os.WriteFile(fname, []byte(testConfigToml), 0644))

	cfg, err := LoadConfig(fname)
	require.NoError(t, err)
	assert.Equal(t, SOURCE_NTS, cfg.Sync.Source)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultWatcherConfig(), cfg.WatcherConfig())
}
