package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHANNEL_ID", "@goodbiz54")
	t.Setenv("MOD_CHAT_ID", "-100200300")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(-100200300), cfg.Telegram.ModChatID)
	assert.Equal(t, "goodbiz54", cfg.Telegram.ChannelUsername())
	assert.Equal(t, 5, cfg.Flow.InviteThreshold)
	assert.Equal(t, 10, cfg.Flow.MaxPhotos)
	assert.Equal(t, "@Ultanovr", cfg.Flow.AgentContact)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Moderation.RejectContextTTL())
	assert.Equal(t, time.Duration(0), cfg.Store.SessionTTL())
}

func TestLoadMissingRequired(t *testing.T) {
	cases := []string{"BOT_TOKEN", "CHANNEL_ID", "MOD_CHAT_ID"}
	for _, key := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedModChat(t *testing.T) {
	setRequired(t)
	t.Setenv("MOD_CHAT_ID", "moderators")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOD_CHAT_ID")
}

func TestLoadModerators(t *testing.T) {
	setRequired(t)
	t.Setenv("MODERATOR_IDS", "11, 22,33")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{11, 22, 33}, cfg.Moderation.ModeratorIDs)
	assert.True(t, cfg.Moderation.IsModerator(22))
	assert.False(t, cfg.Moderation.IsModerator(44))
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Backend")
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")

	t.Setenv("AUTH_JWT_SECRET", "s3cr3t-from-vault")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t-from-vault", cfg.Auth.JWTSecret)
}

func TestNumericChannelHasNoUsername(t *testing.T) {
	tg := TelegramConfig{ChannelID: "-100123"}
	assert.Equal(t, "", tg.ChannelUsername())

	tg.ChannelHandle = "goodbiz54"
	assert.Equal(t, "goodbiz54", tg.ChannelUsername())
}
