package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEAMBOARD_CONFIG_DIR", dir)
	t.Setenv("TEAMBOARD_API_URL", "")
	t.Setenv("TEAMBOARD_FORMAT", "")
	t.Setenv("TEAMBOARD_LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.True(t, cfg.AnalyticsEnabled)
	assert.Equal(t, DefaultQueueSize, cfg.QueueSize)
	assert.Equal(t, 2*time.Second, cfg.RedirectDelay)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestSaveFileRoundTripAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEAMBOARD_CONFIG_DIR", dir)
	t.Setenv("TEAMBOARD_API_URL", "")
	t.Setenv("TEAMBOARD_FORMAT", "")
	t.Setenv("TEAMBOARD_LOG_LEVEL", "")

	f := &File{}
	require.NoError(t, f.Set("api.base_url", "https://pm.example.com"))
	require.NoError(t, f.Set("api.timeout", "5s"))
	require.NoError(t, f.Set("analytics.enabled", "false"))
	require.NoError(t, f.Set("redirect.delay", "500ms"))
	require.NoError(t, SaveFile(f))

	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://pm.example.com", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.False(t, cfg.AnalyticsEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.RedirectDelay)

	t.Setenv("TEAMBOARD_API_URL", "http://127.0.0.1:9999")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.BaseURL)
}

func TestResolve_ValidationErrorsNameTheField(t *testing.T) {
	t.Setenv("TEAMBOARD_API_URL", "")
	t.Setenv("TEAMBOARD_FORMAT", "")

	cases := []struct {
		name string
		file File
		want string
	}{
		{"bad url", File{API: APISection{BaseURL: "not a url"}}, "api.base_url"},
		{"ftp url", File{API: APISection{BaseURL: "ftp://x.example"}}, "api.base_url"},
		{"bad timeout", File{API: APISection{Timeout: "soon"}}, "api.timeout"},
		{"bad format", File{Output: OutputSection{Format: "xml"}}, "output.format"},
		{"bad glyphs", File{TUI: TUISection{Glyphs: "emoji"}}, "tui.glyphs"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := tc.file
			_, err := Resolve(t.TempDir(), &f)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFileSet_UnknownKey(t *testing.T) {
	f := &File{}
	err := f.Set("api.token", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}
