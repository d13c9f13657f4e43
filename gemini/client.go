// Package gemini adapts the Google GenAI SDK to the reply package's Generator and
// Synthesizer capabilities.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

// DefaultSampleRate is assumed when the speech response does not state a rate.
const DefaultSampleRate = 24000

// Config selects the models and voice.
type Config struct {
	APIKey   string
	Model    string
	TTSModel string
	Voice    string
}

// Client calls Gemini for text replies and speech.
type Client struct {
	genai    *genai.Client
	model    string
	ttsModel string
	voice    string
}

// New returns a Client backed by the Gemini API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{genai: gc, model: cfg.Model, ttsModel: cfg.TTSModel, voice: cfg.Voice}, nil
}

// GenerateReply sends userPrompt with systemPrompt as the system instruction and
// returns the reply text.
func (c *Client) GenerateReply(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Synthesize renders text as speech and returns raw PCM audio with its sample rate.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, int, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.ttsModel, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.voice},
			},
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("gemini tts: %w", err)
	}
	return extractAudio(resp)
}

func extractAudio(resp *genai.GenerateContentResponse) ([]byte, int, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, 0, errors.New("gemini tts: empty response")
	}
	var audio []byte
	rate := 0
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		if rate == 0 {
			rate = sampleRate(part.InlineData.MIMEType)
		}
		audio = append(audio, part.InlineData.Data...)
	}
	if len(audio) == 0 {
		return nil, 0, errors.New("gemini tts: response carried no audio")
	}
	return audio, rate, nil
}

// sampleRate reads the rate parameter of an audio MIME type such as
// "audio/L16;codec=pcm;rate=24000", falling back to DefaultSampleRate.
func sampleRate(mimeType string) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return DefaultSampleRate
	}
	if r, err := strconv.Atoi(params["rate"]); err == nil && r > 0 {
		return r
	}
	return DefaultSampleRate
}
