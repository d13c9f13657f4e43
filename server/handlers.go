// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/livereply/chat"
	"github.com/onnwee/livereply/hub"
	"github.com/onnwee/livereply/persona"
	"github.com/onnwee/livereply/reply"
	"github.com/onnwee/livereply/telemetry"
)

// Deps are the collaborators the handlers are wired to.
type Deps struct {
	Store        *persona.Store
	Orchestrator *reply.Orchestrator
	Hub          *hub.Registry
	// WriteTimeout bounds direct replies to the sending connection; 0 means none.
	WriteTimeout time.Duration
}

// Handlers holds dependencies for all HTTP and websocket handlers.
type Handlers struct {
	ctx          context.Context
	store        *persona.Store
	orch         *reply.Orchestrator
	hub          *hub.Registry
	writeTimeout time.Duration
	cors         *corsConfig
	upgrader     websocket.Upgrader
	startedAt    time.Time
}

// NewHandlers creates a Handlers instance. ctx bounds the lifetime of websocket
// connections: they are closed when it is cancelled.
func NewHandlers(ctx context.Context, d Deps) *Handlers {
	h := &Handlers{
		ctx:          ctx,
		store:        d.Store,
		orch:         d.Orchestrator,
		hub:          d.Hub,
		writeTimeout: d.WriteTimeout,
		cors:         loadCORSConfig(),
		startedAt:    time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.cors.checkWebsocketOrigin,
	}
	return h
}

// HandleChatEvents runs each event through the orchestrator against the snapshot
// current when that event starts, and broadcasts every artifact produced.
func (h *Handlers) HandleChatEvents(ctx context.Context, events []chat.Event) {
	for _, ev := range events {
		art := h.orch.Handle(ctx, ev, h.store.ActiveSnapshot())
		if art == nil {
			continue
		}
		if err := h.hub.Broadcast(ctx, art); err != nil {
			telemetry.LoggerWithCorr(ctx).Error("broadcast reply", slog.Any("err", err), slog.String("component", "server"))
		}
	}
}
