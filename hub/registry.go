// Package hub tracks connected viewer clients and fans reply artifacts out to them.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/livereply/telemetry"
)

// ErrRegistryFull is returned by Add when MaxClients connections are registered.
var ErrRegistryFull = errors.New("hub: registry full")

// Client is a broadcast target. ID is the registry identity; Send must be safe
// to call concurrently with the owner's own writes.
type Client interface {
	ID() string
	RemoteAddr() string
	Send(ctx context.Context, data []byte) error
}

// Options configure a Registry.
type Options struct {
	// MaxClients bounds registered clients; 0 means unbounded.
	MaxClients int
	// SendTimeout bounds each per-client send during a broadcast; 0 means none.
	SendTimeout time.Duration
	// Concurrency caps in-flight sends per broadcast; 0 sends to all at once.
	Concurrency int
}

// Registry is the set of connected clients.
type Registry struct {
	opts Options

	mu      sync.RWMutex
	clients map[string]Client
}

// New returns an empty Registry.
func New(opts Options) *Registry {
	return &Registry{opts: opts, clients: make(map[string]Client)}
}

// Add registers c. Adding an id that is already present replaces the entry.
func (r *Registry) Add(c Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID()]; !ok && r.opts.MaxClients > 0 && len(r.clients) >= r.opts.MaxClients {
		return ErrRegistryFull
	}
	r.clients[c.ID()] = c
	telemetry.SetConnectedClients(len(r.clients))
	return nil
}

// Remove unregisters c. Removing an absent client is a no-op.
func (r *Registry) Remove(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c.ID())
	telemetry.SetConnectedClients(len(r.clients))
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast encodes v once and sends it to every client registered at call time.
// Sends run concurrently and failures are logged per client; a failing client is
// not removed. The only error returned is an encoding error.
func (r *Registry) Broadcast(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	return r.BroadcastRaw(ctx, data)
}

// BroadcastRaw sends an already encoded frame to every client.
func (r *Registry) BroadcastRaw(ctx context.Context, data []byte) error {
	clients := r.snapshot()
	if len(clients) == 0 {
		return nil
	}
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "hub"))

	var g errgroup.Group
	if r.opts.Concurrency > 0 {
		g.SetLimit(r.opts.Concurrency)
	}
	telemetry.TimeFunc(telemetry.BroadcastDuration, func() {
		for _, c := range clients {
			g.Go(func() error {
				if err := r.send(ctx, c, data); err != nil {
					telemetry.Inc(telemetry.BroadcastSendFailures)
					log.Warn("broadcast send failed",
						slog.String("client", c.ID()),
						slog.String("remote", c.RemoteAddr()),
						slog.Any("err", err))
				}
				return nil
			})
		}
		_ = g.Wait()
	})
	log.Debug("broadcast delivered", slog.Int("clients", len(clients)), slog.Int("bytes", len(data)))
	return nil
}

func (r *Registry) send(ctx context.Context, c Client, data []byte) error {
	if r.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.SendTimeout)
		defer cancel()
	}
	return c.Send(ctx, data)
}
