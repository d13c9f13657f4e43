package chat

import (
	"context"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/livereply/telemetry"
)

// TwitchConfig selects the channel to relay. Username and OAuthToken are optional;
// without them the client joins anonymously, which is enough to read chat.
type TwitchConfig struct {
	Channel    string
	Username   string
	OAuthToken string
	QueueSize  int
}

// HandleFunc processes one batch of events.
type HandleFunc func(ctx context.Context, events []Event)

// relay decouples the IRC reader from reply processing: the reader only enqueues,
// a single worker drains the queue in order, and events arriving while the queue
// is full are dropped.
type relay struct {
	events chan Event
	handle HandleFunc
}

func newRelay(size int, handle HandleFunc) *relay {
	if size <= 0 {
		size = 64
	}
	return &relay{events: make(chan Event, size), handle: handle}
}

func (r *relay) offer(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	default:
		return false
	}
}

func (r *relay) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			r.handle(ctx, []Event{ev})
		}
	}
}

func eventFromPrivateMessage(msg twitch.PrivateMessage) Event {
	name := msg.User.DisplayName
	if name == "" {
		name = msg.User.Name
	}
	if name == "" {
		name = DefaultUserName
	}
	return Event{Method: MethodChat, UserName: name, Content: msg.Message}
}

// StartTwitchChatSource joins cfg.Channel and feeds every chat message to handle.
// It blocks until ctx is canceled.
func StartTwitchChatSource(ctx context.Context, cfg TwitchConfig, handle HandleFunc) {
	if cfg.Channel == "" {
		slog.Info("twitch chat source: TWITCH_CHANNEL empty; skipping", slog.String("component", "twitch_chat"))
		return
	}
	var client *twitch.Client
	if cfg.Username != "" && cfg.OAuthToken != "" {
		client = twitch.NewClient(cfg.Username, cfg.OAuthToken)
	} else {
		client = twitch.NewAnonymousClient()
	}

	r := newRelay(cfg.QueueSize, handle)
	go r.run(ctx)

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		if !r.offer(eventFromPrivateMessage(msg)) {
			telemetry.RecordDrop(telemetry.DropQueueFull)
			slog.Debug("twitch chat source: queue full; dropping message", slog.String("user", msg.User.Name), slog.String("component", "twitch_chat"))
		}
	})
	client.OnConnect(func() {
		slog.Info("twitch chat source connected", slog.String("channel", cfg.Channel), slog.String("component", "twitch_chat"))
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = client.Disconnect()
		close(done)
	}()

	client.Join(cfg.Channel)
	if err := client.Connect(); err != nil && ctx.Err() == nil {
		slog.Error("twitch chat connect error", slog.Any("err", err), slog.String("component", "twitch_chat"))
	}
	<-done
}
