// Package testutil holds test doubles shared by package tests: fake AI and TTS
// capabilities, a recording broadcast client, and a TEST_PG_DSN-gated database.
package testutil

import (
	"context"
	"fmt"
	"sync"
)

// GenerateCall records one GenerateReply invocation.
type GenerateCall struct {
	UserPrompt   string
	SystemPrompt string
}

// FakeGenerator is a scripted GenerateReply capability.
type FakeGenerator struct {
	mu    sync.Mutex
	Reply string
	Err   error
	calls []GenerateCall
}

// GenerateReply records the call and returns the scripted reply or error.
func (f *FakeGenerator) GenerateReply(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, GenerateCall{UserPrompt: userPrompt, SystemPrompt: systemPrompt})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Reply, f.Err
}

// Calls returns a copy of the recorded calls.
func (f *FakeGenerator) Calls() []GenerateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GenerateCall(nil), f.calls...)
}

// FakeSynthesizer is a scripted Synthesize capability.
type FakeSynthesizer struct {
	mu         sync.Mutex
	Audio      []byte
	SampleRate int
	Err        error
	texts      []string
}

// Synthesize records the text and returns the scripted audio or error.
func (f *FakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.Err != nil {
		return nil, 0, f.Err
	}
	return f.Audio, f.SampleRate, nil
}

// Texts returns the texts passed to Synthesize.
func (f *FakeSynthesizer) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// RecordingClient is a broadcast target that stores every frame it is sent.
// Setting Err makes every Send fail; a non-nil Block makes Send wait until it is
// closed or the context ends.
type RecordingClient struct {
	ClientID string
	Err      error
	Block    chan struct{}

	mu     sync.Mutex
	frames [][]byte
}

// NewRecordingClient returns a client identified by id.
func NewRecordingClient(id string) *RecordingClient {
	return &RecordingClient{ClientID: id}
}

func (c *RecordingClient) ID() string         { return c.ClientID }
func (c *RecordingClient) RemoteAddr() string { return "test/" + c.ClientID }

// Send records data unless the client is configured to fail or block.
func (c *RecordingClient) Send(ctx context.Context, data []byte) error {
	if c.Block != nil {
		select {
		case <-c.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.Err != nil {
		return fmt.Errorf("client %s: %w", c.ClientID, c.Err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

// Frames returns a copy of the frames received so far.
func (c *RecordingClient) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}
