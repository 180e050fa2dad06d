package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "ALLOWED_ORIGINS", "WS_MAX_MESSAGE_BYTES", "WS_PING_INTERVAL", "NATS_URL", "NODE_ID"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(16<<20), cfg.WSMaxMessageBytes)
	assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
	assert.Equal(t, "streamscore", cfg.NATSSubjectPrefix)
	assert.NotEmpty(t, cfg.NodeID)
	assert.False(t, cfg.RelayEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://obs.example.com ,")
	t.Setenv("WS_MAX_MESSAGE_BYTES", "1048576")
	t.Setenv("WS_PING_INTERVAL", "5s")
	t.Setenv("WS_SEND_BUFFER", "32")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("NODE_ID", "booth-1")
	t.Setenv("SPORT_PRESETS_FILE", "/etc/streamscore/presets.yaml")

	cfg := FromEnv()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://obs.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1<<20), cfg.WSMaxMessageBytes)
	assert.Equal(t, 5*time.Second, cfg.WSPingInterval)
	assert.Equal(t, 32, cfg.WSSendBuffer)
	assert.Equal(t, "booth-1", cfg.NodeID)
	assert.Equal(t, "/etc/streamscore/presets.yaml", cfg.SportPresetsFile)
	assert.True(t, cfg.RelayEnabled())
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WS_SEND_BUFFER", "many")
	t.Setenv("WS_READ_TIMEOUT", "-3s")
	t.Setenv("WS_WRITE_TIMEOUT", "soon")

	cfg := FromEnv()

	assert.Equal(t, 256, cfg.WSSendBuffer)
	assert.Equal(t, 60*time.Second, cfg.WSReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WSWriteTimeout)
}

func TestFromEnv_NonPositiveSizesFallBack(t *testing.T) {
	for _, v := range []string{"0", "-4"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("WS_SEND_BUFFER", v)
			t.Setenv("WS_MAX_MESSAGE_BYTES", v)

			cfg := FromEnv()

			assert.Equal(t, 256, cfg.WSSendBuffer)
			assert.Equal(t, int64(16<<20), cfg.WSMaxMessageBytes)
		})
	}
}
