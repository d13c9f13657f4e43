// Package reply turns chat events into mood-tagged, optionally voiced replies.
//
// IsMeaningless and Compose are pure functions over a persona snapshot.
// ParseMood splits the model's tag off its reply. Orchestrator drives one event
// from filter to prompt to model call, then mood parsing and speech. External
// model and speech calls are bounded by timeouts and never retried; a failure
// drops the reply (model) or only its audio (speech).
package reply

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/livereply/chat"
	"github.com/onnwee/livereply/persona"
	"github.com/onnwee/livereply/telemetry"
)

// Generator produces reply text for a prompt pair.
type Generator interface {
	GenerateReply(ctx context.Context, userPrompt, systemPrompt string) (string, error)
}

// Synthesizer converts reply text to audio samples at a sample rate in Hz.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio []byte, sampleRate int, err error)
}

// Options bound the external calls. Zero means no extra bound.
type Options struct {
	AITimeout  time.Duration
	TTSTimeout time.Duration
}

// Orchestrator drives one chat event end-to-end. It holds no per-event state and
// is safe for concurrent use.
type Orchestrator struct {
	gen  Generator
	tts  Synthesizer
	opts Options
}

// NewOrchestrator returns an Orchestrator. tts may be nil to disable speech.
func NewOrchestrator(gen Generator, tts Synthesizer, opts Options) *Orchestrator {
	return &Orchestrator{gen: gen, tts: tts, opts: opts}
}

// SpeechEnabled reports whether a Synthesizer is configured.
func (o *Orchestrator) SpeechEnabled() bool { return o.tts != nil }

// Handle processes ev against snap and returns the reply, or nil when the event
// is ignored, filtered, unmatched, or the model call fails or returns nothing.
func (o *Orchestrator) Handle(ctx context.Context, ev chat.Event, snap persona.Snapshot) *Artifact {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "orchestrator"))
	if !ev.IsChat() {
		reason := telemetry.DropNotChat
		if ev.Method == chat.MethodChat {
			reason = telemetry.DropEmpty
		}
		telemetry.RecordDrop(reason)
		return nil
	}
	telemetry.Inc(telemetry.ChatEventsReceived)

	p := snap.Persona
	var matched []persona.KeywordRule
	switch p.ResponseMode {
	case persona.ModeFreeQA:
		if IsMeaningless(ev.Content, p) {
			telemetry.RecordDrop(telemetry.DropMeaningless)
			log.Debug("message filtered as meaningless", slog.String("user", ev.UserName))
			return nil
		}
	default:
		matched = MatchRules(ev.Content, snap.Rules)
		if len(matched) == 0 {
			telemetry.RecordDrop(telemetry.DropNoKeyword)
			return nil
		}
		triggers := make([]string, len(matched))
		for i, r := range matched {
			triggers[i] = r.Trigger
		}
		log.Info("keyword matched", slog.String("user", ev.UserName), slog.Any("triggers", triggers))
	}

	systemPrompt, userPrompt := Compose(p.ResponseMode, ev.Content, p, matched)
	systemPrompt = systemPrompt + "\n\n" + MoodInstruction

	text, err := o.generate(ctx, userPrompt, systemPrompt)
	if err != nil {
		telemetry.RecordDrop(telemetry.DropAIFailed)
		log.Warn("ai reply failed", slog.String("persona", p.ID), slog.Any("err", err))
		return nil
	}
	if strings.TrimSpace(text) == "" {
		telemetry.RecordDrop(telemetry.DropAIEmpty)
		log.Warn("ai reply empty", slog.String("persona", p.ID))
		return nil
	}

	mood, content := ParseMood(text)
	art := NewArtifact(content, mood, ev.UserName, ev.Content)
	if snap.TTSEnabled {
		o.attachSpeech(ctx, art)
	}
	telemetry.Inc(telemetry.RepliesProduced)
	log.Info("reply ready",
		slog.String("user", ev.UserName),
		slog.String("mood", art.Mood),
		slog.Bool("audio", art.HasAudio()))
	return art
}

// Speak builds an artifact for text without calling the model, voicing it when
// speech is enabled. An empty mood becomes neutral.
func (o *Orchestrator) Speak(ctx context.Context, text, mood, userName string, withSpeech bool) *Artifact {
	art := NewArtifact(text, mood, userName, text)
	if withSpeech {
		o.attachSpeech(ctx, art)
	}
	return art
}

func (o *Orchestrator) generate(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	if o.opts.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.AITimeout)
		defer cancel()
	}
	ctx, span := telemetry.StartSpan(ctx, "reply", "reply.generate", attribute.Int("prompt.system_len", len(systemPrompt)))
	defer span.End()

	var text string
	var err error
	telemetry.TimeFunc(telemetry.AIDuration, func() {
		text, err = o.gen.GenerateReply(ctx, userPrompt, systemPrompt)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	telemetry.SetSpanSuccess(span)
	return text, nil
}

// attachSpeech voices art.Content; on failure art stays text-only.
func (o *Orchestrator) attachSpeech(ctx context.Context, art *Artifact) {
	if o.tts == nil || art.Content == "" {
		return
	}
	if o.opts.TTSTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.TTSTimeout)
		defer cancel()
	}
	ctx, span := telemetry.StartSpan(ctx, "reply", "reply.synthesize", attribute.Int("text.len", len(art.Content)))
	defer span.End()

	var audio []byte
	var rate int
	var err error
	telemetry.TimeFunc(telemetry.TTSDuration, func() {
		audio, rate, err = o.tts.Synthesize(ctx, art.Content)
	})
	if err != nil {
		telemetry.Inc(telemetry.TTSFailures)
		telemetry.RecordError(span, err)
		telemetry.LoggerWithCorr(ctx).Warn("speech synthesis failed; sending text only", slog.Any("err", err), slog.String("component", "orchestrator"))
		return
	}
	art.SetAudio(audio, rate)
	telemetry.SetSpanSuccess(span)
}
