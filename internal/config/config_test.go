package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SLACK_TOKEN", "SLACK_COOKIE", "LOG_LEVEL", "SLACK_EXPORT_DIR"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))
}

func TestLoad_DefaultsWithEnvToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLACK_TOKEN", "xoxb-env")
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "xoxb-env", cfg.Token)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "logs"), cfg.LogDir)
	assert.Equal(t, filepath.Join(dir, "exports"), cfg.ExportDir)

	opts := cfg.ExportOptions()
	assert.Equal(t, 200, opts.PageSize)
	assert.Equal(t, 5*time.Second, opts.ReplyInterval)
	assert.Equal(t, 60*time.Second, opts.DefaultRetryAfter)
	assert.Equal(t, 10, opts.ProgressEvery)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, `
token = "xoxb-file"
cookie = "file-cookie"
log_level = "debug"
export_dir = "/srv/exports"

[export]
page_size = 500
reply_interval = "2s"
default_retry_after = "30s"
`)
	t.Setenv("SLACK_COOKIE", "env-cookie")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "xoxb-file", cfg.Token)
	assert.Equal(t, "env-cookie", cfg.Cookie)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/exports", cfg.ExportDir)
	assert.Equal(t, 500, cfg.Export.PageSize)
	assert.Equal(t, 2*time.Second, cfg.Export.ReplyInterval)
	assert.Equal(t, 30*time.Second, cfg.Export.DefaultRetryAfter)
	// untouched keys keep their defaults
	assert.Equal(t, 1000, cfg.Export.ReplyLimit)

	sc := cfg.SlackConfig()
	assert.Equal(t, "xoxb-file", sc.Token)
	assert.Equal(t, "env-cookie", sc.Cookie)
}

func TestLoad_MissingToken(t *testing.T) {
	clearEnv(t)

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack token is required")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "page size over cap", content: "token = \"x\"\n[export]\npage_size = 5000\n", want: "page_size"},
		{name: "zero interval", content: "token = \"x\"\n[export]\nreply_interval = \"0s\"\n", want: "reply_interval"},
		{name: "bad log level", content: "token = \"x\"\nlog_level = \"loud\"\n", want: "log_level"},
		{name: "unknown key", content: "token = \"x\"\nreply_interval = \"1s\"\n", want: "unknown keys"},
		{name: "not toml", content: "token = ", want: "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyEnvOverrides_LowercasesLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("SLACK_EXPORT_DIR", "/tmp/out")

	cfg := Default(t.TempDir())
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/out", cfg.ExportDir)
}
