// Command livereply is the live-stream chat auto-responder.
// It:
//   - Loads configuration and initializes structured logging.
//   - Loads the persona configuration from the selected backend (file,
//     Postgres kv table or Redis), falling back to built-in defaults.
//   - Wires the Gemini text and speech capabilities into the reply pipeline.
//   - Serves the websocket ingest endpoint plus /healthz, /readyz, /status,
//     /config and /metrics, and optionally relays a Twitch channel's chat.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/livereply/chat"
	"github.com/onnwee/livereply/config"
	"github.com/onnwee/livereply/db"
	"github.com/onnwee/livereply/gemini"
	"github.com/onnwee/livereply/hub"
	"github.com/onnwee/livereply/persona"
	"github.com/onnwee/livereply/reply"
	"github.com/onnwee/livereply/server"
	"github.com/onnwee/livereply/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateAIReady(); err != nil {
		slog.Error("refusing to start", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("livereply", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("config backend unavailable", slog.String("backend", cfg.ConfigBackend), slog.Any("err", err))
		os.Exit(1)
	}
	defer closeBackend()

	store := persona.NewStore(backend)
	current := store.Load(ctx)
	slog.Info("persona config loaded",
		slog.String("backend", cfg.ConfigBackend),
		slog.String("active_persona", current.ActivePersonaID),
		slog.Int("rules", len(current.Rules)))

	gc, err := gemini.New(ctx, gemini.Config{
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		TTSModel: cfg.TTSModel,
		Voice:    cfg.TTSVoice,
	})
	if err != nil {
		slog.Error("gemini client init failed", slog.Any("err", err))
		os.Exit(1)
	}
	var tts reply.Synthesizer
	if cfg.TTSEnabled {
		tts = gc
	} else {
		slog.Info("speech synthesis disabled (TTS_ENABLED=0)")
	}
	orch := reply.NewOrchestrator(gc, tts, reply.Options{AITimeout: cfg.AITimeout, TTSTimeout: cfg.TTSTimeout})

	registry := hub.New(hub.Options{
		MaxClients:  cfg.MaxClients,
		SendTimeout: cfg.WSWriteTimeout,
		Concurrency: cfg.BroadcastLimit,
	})
	handlers := server.NewHandlers(ctx, server.Deps{
		Store:        store,
		Orchestrator: orch,
		Hub:          registry,
		WriteTimeout: cfg.WSWriteTimeout,
	})

	if cfg.TwitchEnabled() {
		go chat.StartTwitchChatSource(ctx, chat.TwitchConfig{
			Channel:    cfg.TwitchChannel,
			Username:   cfg.TwitchBotUsername,
			OAuthToken: cfg.TwitchOAuthToken,
		}, handlers.HandleChatEvents)
	} else {
		slog.Info("twitch chat source disabled (TWITCH_CHANNEL not set)")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx, handlers, cfg.HTTPAddr) }()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		<-errCh
	case err := <-errCh:
		if err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
			stop()
			os.Exit(1)
		}
	}
}

// setupLogging configures the default logger. Defaults: level=info, format=text.
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}

// openBackend returns the configured persona storage and a func releasing it.
func openBackend(ctx context.Context, cfg *config.Config) (persona.Backend, func(), error) {
	switch cfg.ConfigBackend {
	case config.BackendPostgres:
		database, err := db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return persona.NewPostgresBackend(database, cfg.ConfigKey), closer("database", database), nil
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rb := persona.NewRedisBackend(redis.NewClient(opts), cfg.ConfigKey)
		if err := rb.Ping(ctx); err != nil {
			_ = rb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return rb, func() {
			if err := rb.Close(); err != nil {
				slog.Error("failed to close redis client", slog.Any("err", err))
			}
		}, nil
	case config.BackendFile:
		return persona.NewFileBackend(cfg.PersonaPath), func() {}, nil
	default:
		return nil, nil, errors.New("unknown config backend " + cfg.ConfigBackend)
	}
}

func closer(name string, database *sql.DB) func() {
	return func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close "+name, slog.Any("err", err))
		}
	}
}
