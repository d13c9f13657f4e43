// Package config loads environment variables and provides a typed Config used across the service.
// It applies defaults so the binary can run locally with only an API key set.
// For the required model credential, use ValidateAIReady.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredentials is returned by ValidateAIReady when no Gemini API key is configured.
var ErrMissingCredentials = errors.New("missing AI credentials: set GEMINI_API_KEY, GOOGLE_API_KEY or GEMINI_API_KEY_FILE")

// Storage backends for the persona configuration document.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	// HTTP / websocket
	HTTPAddr       string
	WSWriteTimeout time.Duration
	MaxClients     int
	BroadcastLimit int

	// Persona configuration storage
	ConfigBackend string
	DataDir       string
	PersonaPath   string
	DBDsn         string // empty selects db.DefaultDSN
	RedisURL      string
	ConfigKey     string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration
	TTSEnabled   bool
	TTSModel     string
	TTSVoice     string
	TTSTimeout   time.Duration

	// Twitch chat source (optional)
	TwitchChannel     string
	TwitchBotUsername string
	TwitchOAuthToken  string
}

// Load reads environment variables and applies defaults. It doesn't fail if the API key is
// missing; call ValidateAIReady before serving. Malformed numbers or durations are errors.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		ConfigBackend: strings.ToLower(envOr("CONFIG_BACKEND", BackendFile)),
		DataDir:       envOr("DATA_DIR", "data"),
		DBDsn:         os.Getenv("DB_DSN"),
		RedisURL:      envOr("REDIS_URL", "redis://localhost:6379/0"),
		ConfigKey:     envOr("CONFIG_KEY", "persona_config"),
		GeminiModel:   envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		TTSEnabled:    os.Getenv("TTS_ENABLED") != "0",
		TTSModel:      envOr("TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		TTSVoice:      envOr("TTS_VOICE", "Kore"),

		TwitchChannel:     os.Getenv("TWITCH_CHANNEL"),
		TwitchBotUsername: os.Getenv("TWITCH_BOT_USERNAME"),
		TwitchOAuthToken:  os.Getenv("TWITCH_OAUTH_TOKEN"),
	}
	cfg.PersonaPath = envOr("PERSONA_CONFIG_PATH", filepath.Join(cfg.DataDir, "persona_config.json"))

	switch cfg.ConfigBackend {
	case BackendFile, BackendPostgres, BackendRedis:
	default:
		return nil, fmt.Errorf("invalid CONFIG_BACKEND %q (want file, postgres or redis)", cfg.ConfigBackend)
	}

	var err error
	if cfg.AITimeout, err = durationEnv("AI_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TTSTimeout, err = durationEnv("TTS_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.WSWriteTimeout, err = durationEnv("WS_WRITE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxClients, err = intEnv("MAX_CLIENTS", 0); err != nil {
		return nil, err
	}
	if cfg.BroadcastLimit, err = intEnv("BROADCAST_CONCURRENCY", 0); err != nil {
		return nil, err
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.GeminiAPIKey == "" {
		if path := os.Getenv("GEMINI_API_KEY_FILE"); path != "" {
			b, err := os.ReadFile(path) // #nosec G304 -- operator-supplied secret path
			if err != nil {
				return nil, fmt.Errorf("read GEMINI_API_KEY_FILE: %w", err)
			}
			cfg.GeminiAPIKey = strings.TrimSpace(string(b))
		}
	}

	return cfg, nil
}

// ValidateAIReady checks that a model credential is present. The service must not start without one.
func (c *Config) ValidateAIReady() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// TwitchEnabled reports whether the Twitch chat source should run.
func (c *Config) TwitchEnabled() bool {
	return c.TwitchChannel != ""
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q (want a duration such as 30s)", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q (want a non-negative integer)", key, v)
	}
	return n, nil
}
