package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uispec/internal/poll"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewDefault_IsValid(t *testing.T) {
	cfg := NewDefault()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, poll.Options{Timeout: poll.DefaultTimeout, Interval: poll.DefaultInterval}, cfg.PollOptions())
	assert.Zero(t, cfg.SuiteTimeout())
	assert.True(t, cfg.Browser.Headless)
}

func TestLoad_NoFiles(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, NewDefault(), cfg)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "uispec.toml", `
base_url = "http://127.0.0.1:3000"
timeout_ms = 2000
interval_ms = 20
suite_timeout_ms = 60000
db_path = "runs.db"
log_level = "debug"

[browser]
headless = false
window_width = 1920
window_height = 1080
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:3000", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.PollOptions().Timeout)
	assert.Equal(t, 20*time.Millisecond, cfg.PollOptions().Interval)
	assert.Equal(t, time.Minute, cfg.SuiteTimeout())
	assert.Equal(t, "runs.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat, "unset keys keep defaults")
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
}

func TestLoad_EnvFileThenEnvironment(t *testing.T) {
	toml := writeFile(t, "uispec.toml", `base_url = "http://from-toml:1"`)
	env := writeFile(t, ".env", "UISPEC_BASE_URL=http://from-dotenv:2\nUISPEC_TIMEOUT_MS=1500\n")

	cfg, err := Load(toml, env)
	require.NoError(t, err)
	assert.Equal(t, "http://from-dotenv:2", cfg.BaseURL)
	assert.Equal(t, 1500, cfg.TimeoutMs)

	t.Setenv("UISPEC_BASE_URL", "http://from-env:3")
	t.Setenv("UISPEC_HEADLESS", "false")
	cfg, err = Load(toml, env)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:3", cfg.BaseURL)
	assert.Equal(t, 1500, cfg.TimeoutMs)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_MissingEnvFileIsOptional(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		toml    string
		env     map[string]string
		message string
	}{
		{"bad toml", "base_url = ", nil, "failed to parse config file"},
		{"bad url", `base_url = "not a url"`, nil, "Config.BaseURL failed \"url\""},
		{"zero timeout", "timeout_ms = 0", nil, "Config.TimeoutMs"},
		{"interval above timeout", "timeout_ms = 100\ninterval_ms = 200", nil, "Config.IntervalMs failed \"ltefield\""},
		{"log level", `log_level = "loud"`, nil, "Config.LogLevel"},
		{"tiny window", "[browser]\nwindow_width = 10", nil, "Config.Browser.WindowWidth"},
		{"env number", "", map[string]string{"UISPEC_TIMEOUT_MS": "soon"}, "UISPEC_TIMEOUT_MS"},
		{"env bool", "", map[string]string{"UISPEC_NO_SANDBOX": "maybe"}, "UISPEC_NO_SANDBOX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, "uispec.toml", tt.toml)
			_, err := Load(path, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), "")
	assert.ErrorContains(t, err, "failed to read config file")
}
