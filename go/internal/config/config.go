package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the server settings read from the environment
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	AllowedOrigins []string

	WSMaxMessageBytes int64
	WSPingInterval    time.Duration
	WSReadTimeout     time.Duration
	WSWriteTimeout    time.Duration
	WSSendBuffer      int

	SportPresetsFile string

	NATSURL           string
	NATSSubjectPrefix string
	NodeID            string
}

// LoadDotEnv copies .env into the environment when present.
// Call it before logging is set up so LOG_LEVEL can come from .env.
func LoadDotEnv() error {
	return godotenv.Load()
}

// FromEnv reads configuration from environment variables (with defaults)
func FromEnv() Config {
	return Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		WSMaxMessageBytes: int64(getEnvAsPositiveInt("WS_MAX_MESSAGE_BYTES", 16<<20)),
		WSPingInterval:    getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
		WSReadTimeout:     getEnvAsDuration("WS_READ_TIMEOUT", 60*time.Second),
		WSWriteTimeout:    getEnvAsDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		WSSendBuffer:      getEnvAsPositiveInt("WS_SEND_BUFFER", 256),

		SportPresetsFile: getEnv("SPORT_PRESETS_FILE", ""),

		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "streamscore"),
		NodeID:            getEnv("NODE_ID", uuid.NewString()),
	}
}

// RelayEnabled reports whether snapshots should be mirrored over NATS
func (c Config) RelayEnabled() bool {
	return c.NATSURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsPositiveInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid positive integer, using default")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
