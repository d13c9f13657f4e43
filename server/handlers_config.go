package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/livereply/persona"
	"github.com/onnwee/livereply/telemetry"
)

// HandleConfig serves the persona configuration document on GET and replaces it on PUT.
// PUT is wrapped with admin auth and rate limiting in NewMux.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	log := telemetry.LoggerWithCorr(r.Context()).With(slog.String("component", "http"))
	switch r.Method {
	case http.MethodGet:
		doc, err := persona.Encode(h.store.Current())
		if err != nil {
			log.Error("encode config", slog.Any("err", err))
			http.Error(w, "failed to encode config", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	case http.MethodPut:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		cfg, err := persona.Decode(body)
		if err != nil {
			http.Error(w, "invalid config document", http.StatusBadRequest)
			return
		}
		err = h.store.Replace(r.Context(), cfg)
		telemetry.Inc(telemetry.ConfigReplacements)
		if err != nil {
			log.Error("persist config", slog.Any("err", err))
			http.Error(w, "config applied but could not be persisted", http.StatusInternalServerError)
			return
		}
		log.Info("config replaced via http", slog.String("active_persona", cfg.ActivePersonaID), slog.Int("rules", len(cfg.Rules)))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleStatus returns a lightweight summary of the live configuration and connections.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := h.store.Current()
	active := cfg.ActivePersona()
	resp := map[string]any{
		"connected_clients": h.hub.Len(),
		"active_persona":    active.ID,
		"persona_name":      active.DisplayName,
		"response_mode":     active.ResponseMode,
		"filtering_enabled": active.FilteringEnabled,
		"keyword_rules":     len(cfg.Rules),
		"personas":          len(cfg.Personas),
		"tts_enabled":       cfg.TTSEnabled,
		"tts_available":     h.orch.SpeechEnabled(),
		"uptime_seconds":    int(time.Since(h.startedAt).Seconds()),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
