package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Store owns the live Configuration.
//
// Readers call ActiveSnapshot (or Current) and keep the result for the duration of
// one event; Replace swaps the whole Configuration atomically, so a reader never sees
// a partially updated value and snapshots taken before a Replace stay unchanged.
type Store struct {
	backend Backend
	current atomic.Pointer[Configuration]
	// writeMu orders Replace+Save pairs so storage ends with the last swapped value.
	writeMu sync.Mutex
}

// NewStore returns a Store that starts with the built-in default configuration.
// Call Load to read the persisted document.
func NewStore(backend Backend) *Store {
	s := &Store{backend: backend}
	s.current.Store(Default())
	return s
}

// Backend returns the storage backend.
func (s *Store) Backend() Backend { return s.backend }

// Load reads the persisted document and makes it current.
//
// A missing or undecodable document is replaced by the default configuration,
// which is written back immediately. Any other read failure (e.g. storage
// unreachable) also yields the default but leaves storage untouched. Load never
// fails; write-back problems are logged.
func (s *Store) Load(ctx context.Context) *Configuration {
	log := slog.Default().With(slog.String("component", "persona_store"))
	data, err := s.backend.Read(ctx)
	var cfg *Configuration
	persist := false
	switch {
	case errors.Is(err, ErrNotFound):
		log.Info("no persona config stored; writing defaults")
		persist = true
	case err != nil:
		log.Warn("persona config read failed; using defaults", slog.Any("err", err))
	default:
		cfg, err = Decode(data)
		if err != nil {
			log.Warn("persona config corrupt; replacing with defaults", slog.Any("err", err))
			persist = true
		}
	}
	if cfg == nil {
		cfg = Default()
	}
	s.current.Store(cfg)
	if persist {
		if err := s.Save(ctx, cfg); err != nil {
			log.Error("failed to persist default persona config", slog.Any("err", err))
		}
	}
	log.Info("persona config loaded",
		slog.String("active_persona", cfg.ActivePersonaID),
		slog.Int("personas", len(cfg.Personas)),
		slog.Int("keyword_rules", len(cfg.Rules)))
	return cfg
}

// Save serializes cfg and writes it to the backend as one document.
func (s *Store) Save(ctx context.Context, cfg *Configuration) error {
	data, err := Encode(cfg)
	if err != nil {
		return fmt.Errorf("encode persona config: %w", err)
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("write persona config: %w", err)
	}
	return nil
}

// Replace makes a copy of cfg current and then persists it. The in-memory swap
// always happens; the returned error only reports a failed write.
func (s *Store) Replace(ctx context.Context, cfg *Configuration) error {
	if cfg == nil {
		return errors.New("persona: nil configuration")
	}
	next := cfg.Clone()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.current.Store(next)
	return s.Save(ctx, next)
}

// Current returns the live configuration. Callers must treat it as read-only.
func (s *Store) Current() *Configuration { return s.current.Load() }

// ActiveSnapshot resolves the active persona (falling back to the built-in
// default) and pairs it with the current keyword rules.
func (s *Store) ActiveSnapshot() Snapshot { return s.current.Load().Snapshot() }
