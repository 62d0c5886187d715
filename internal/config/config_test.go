package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 25, cfg.Session.PendingLimit)
	assert.Equal(t, 3, cfg.Scheduler.Workers)
	assert.Equal(t, "uzb+rus+eng", cfg.OCR.Languages)
	assert.Equal(t, "uz", cfg.Translate.DefaultTarget)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Postgres.Enabled())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)
}

func TestLoad_LegacyAndPrefixedEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("APP_BASE", "https://example.org/")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("GROUP_CHAT_ID", "-100500")
	t.Setenv("OFMBOT_SCHEDULER_WORKERS", "5")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "https://example.org", cfg.App.BaseURL)
	assert.Equal(t, int64(-100500), cfg.Bot.ArchiveChatID)
	assert.Equal(t, 5, cfg.Scheduler.Workers)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "https://example.org/bot/webhook", cfg.WebhookURL(""))
	assert.Equal(t, "https://other.dev/bot/webhook", cfg.WebhookURL("https://other.dev/"))
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ofmbot.yaml")
	content := "bot:\n  token: from-file\nhttp:\n  addr: \":9090\"\npostgres:\n  host: db\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("BOT_TOKEN", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.True(t, cfg.Postgres.Enabled())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
