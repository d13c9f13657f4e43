package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/onnwee/livereply/chat"
	"github.com/onnwee/livereply/persona"
	"github.com/onnwee/livereply/telemetry"
)

// Control actions accepted on the websocket.
const (
	ActionGetConfig  = "get_config"
	ActionSaveConfig = "save_config"
	ActionTestSpeech = "test_speech"
)

// Outbound control message types.
const (
	TypeConfigUpdate = "config_update"
	TypeConfigSaved  = "config_saved"
)

// TestSpeechUser labels artifacts produced by test_speech.
const TestSpeechUser = "语音测试"

const maxFrameBytes = 1 << 20

// controlMessage is the inbound object shape. Fields unused by an action are ignored.
type controlMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
	Text   string          `json:"text"`
	Mood   string          `json:"mood"`
}

type configUpdate struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type configSaved struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// wsClient is a registered connection. Writes are serialized because a gorilla
// connection supports one concurrent writer.
type wsClient struct {
	id           string
	remote       string
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

func (c *wsClient) ID() string         { return c.id }
func (c *wsClient) RemoteAddr() string { return c.remote }

// Send writes one text frame. The write deadline is the earlier of the ctx
// deadline and the configured write timeout.
func (c *wsClient) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var deadline time.Time
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) sendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return c.Send(ctx, data)
}

// HandleWebsocket upgrades the request and runs the ingest loop until the peer
// disconnects, the loop's own write fails, or the server shuts down.
func (h *Handlers) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	log := telemetry.LoggerWithCorr(r.Context()).With(slog.String("component", "ws"))
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Debug("websocket upgrade failed", slog.Any("err", err), slog.String("remote_addr", r.RemoteAddr))
		return
	}
	defer func() { _ = conn.Close() }()

	c := &wsClient{id: uuid.NewString(), remote: r.RemoteAddr, conn: conn, writeTimeout: h.writeTimeout}
	log = log.With(slog.String("conn", c.id), slog.String("remote_addr", c.remote))

	if err := h.hub.Add(c); err != nil {
		telemetry.Inc(telemetry.ConnectionsRejected)
		log.Warn("connection rejected", slog.Any("err", err))
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server full")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}
	defer h.hub.Remove(c)
	log.Info("client connected", slog.Int("clients", h.hub.Len()))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-h.ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	// Replies and broadcasts must outlive a sender that disconnects mid-event.
	ctx := context.WithoutCancel(r.Context())
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Time{})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Warn("websocket read failed", slog.Any("err", err))
			} else {
				log.Info("client disconnected")
			}
			return
		}
		if err := h.handleFrame(ctx, c, data); err != nil {
			log.Warn("reply to client failed; closing connection", slog.Any("err", err))
			return
		}
	}
}

// handleFrame routes one inbound frame. Only a failed write back to c is
// returned; malformed input is dropped.
func (h *Handlers) handleFrame(ctx context.Context, c *wsClient, data []byte) error {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "ws"), slog.String("conn", c.id))
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		telemetry.Inc(telemetry.MalformedFramesIgnored)
		return nil
	}
	switch trimmed[0] {
	case '[':
		events, err := chat.DecodeBatch(trimmed)
		if err != nil {
			telemetry.Inc(telemetry.MalformedFramesIgnored)
			log.Debug("ignoring malformed chat batch", slog.Any("err", err))
			return nil
		}
		h.HandleChatEvents(ctx, events)
		return nil
	case '{':
		var msg controlMessage
		if err := json.Unmarshal(trimmed, &msg); err != nil || msg.Action == "" {
			telemetry.Inc(telemetry.MalformedFramesIgnored)
			log.Debug("ignoring object frame without a valid action")
			return nil
		}
		return h.handleControl(ctx, c, msg)
	default:
		telemetry.Inc(telemetry.MalformedFramesIgnored)
		log.Debug("ignoring frame that is neither an array nor an object")
		return nil
	}
}

func (h *Handlers) handleControl(ctx context.Context, c *wsClient, msg controlMessage) error {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "ws"), slog.String("conn", c.id), slog.String("action", msg.Action))
	switch msg.Action {
	case ActionGetConfig:
		doc, err := persona.Encode(h.store.Current())
		if err != nil {
			log.Error("encode config", slog.Any("err", err))
			return nil
		}
		return h.reply(ctx, c, configUpdate{Type: TypeConfigUpdate, Data: doc})

	case ActionSaveConfig:
		cfg, err := persona.Decode(msg.Data)
		if err != nil {
			telemetry.Inc(telemetry.MalformedFramesIgnored)
			log.Debug("ignoring save_config with invalid data", slog.Any("err", err))
			return nil
		}
		message := "配置已保存"
		if err := h.store.Replace(ctx, cfg); err != nil {
			log.Error("persist config", slog.Any("err", err))
			message = "配置已生效，但保存到存储失败"
		}
		telemetry.Inc(telemetry.ConfigReplacements)
		log.Info("config replaced", slog.String("active_persona", cfg.ActivePersonaID), slog.Int("rules", len(cfg.Rules)))
		return h.reply(ctx, c, configSaved{Type: TypeConfigSaved, Message: message})

	case ActionTestSpeech:
		if msg.Text == "" {
			log.Debug("ignoring test_speech without text")
			return nil
		}
		art := h.orch.Speak(ctx, msg.Text, msg.Mood, TestSpeechUser, true)
		if err := h.hub.Broadcast(ctx, art); err != nil {
			log.Error("broadcast test speech", slog.Any("err", err))
		}
		return nil

	default:
		log.Debug("ignoring unknown action")
		return nil
	}
}

func (h *Handlers) reply(ctx context.Context, c *wsClient, v any) error {
	if h.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.writeTimeout)
		defer cancel()
	}
	if err := c.sendJSON(ctx, v); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	}
	return nil
}
