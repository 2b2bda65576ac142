package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "profiles.json", cfg.ProfilesPath)
	assert.Equal(t, "warmup_history.db", cfg.HistoryPath)
	assert.Equal(t, "msedge", cfg.BrowserChannel)
	assert.Equal(t, 5*time.Second, cfg.ProfileDelay())
	assert.Equal(t, 2*time.Minute, cfg.StepTimeout())
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8088
profiles_path: /data/profiles.json
browser_channel: chrome
headless: true
profile_delay_seconds: 10
step_timeout_seconds: 60
telegram_token: abc123
telegram_chat_id: 42
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Port)
	assert.Equal(t, "/data/profiles.json", cfg.ProfilesPath)
	assert.Equal(t, "chrome", cfg.BrowserChannel)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 10*time.Second, cfg.ProfileDelay())
	assert.Equal(t, time.Minute, cfg.StepTimeout())
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8088\nbrowser_channel: chrome\n"), 0644))

	t.Setenv("PORT", "9000")
	t.Setenv("BROWSER_CHANNEL", "msedge")
	t.Setenv("HEADLESS", "true")
	t.Setenv("PEXELS_API_KEY", "pex-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "msedge", cfg.BrowserChannel)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "pex-key", cfg.PexelsAPIKey)
}
