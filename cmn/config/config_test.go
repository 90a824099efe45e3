package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTmp(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRecognizedKeys(t *testing.T) {
	path := writeTmp(t, `
[general]
enabled = true
arcDPS = true
extras = false

[server]
maxClients = 16
clientTimeoutTimer = 5000
msgQueueSize = 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.General.Enabled)
	assert.True(t, cfg.General.ArcDPS)
	assert.False(t, cfg.General.Extras)
	assert.Equal(t, 16, cfg.Server.MaxClients)
	assert.Equal(t, 5*time.Second, cfg.Server.ClientTimeoutTimer)
	assert.Equal(t, 8, cfg.Server.MsgQueueSize)
}

func TestLoadUnknownSectionsAndKeysIgnored(t *testing.T) {
	path := writeTmp(t, `
[general]
enabled = true
mysteryKey = true

[nonsense]
foo = bar

[server]
maxClients = 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.General.Enabled)
	assert.Equal(t, 4, cfg.Server.MaxClients)
}

func TestLoadDefaultsApplyWhenMissing(t *testing.T) {
	path := writeTmp(t, `[general]
enabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxClients, cfg.Server.MaxClients)
	assert.Equal(t, DefaultClientTimeoutTimer, cfg.Server.ClientTimeoutTimer)
	assert.Equal(t, DefaultMsgQueueSize, cfg.Server.MsgQueueSize)
}

func TestLoadMalformedValueFallsBackToDefault(t *testing.T) {
	path := writeTmp(t, `[server]
maxClients = not-a-number
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxClients, cfg.Server.MaxClients)
}
