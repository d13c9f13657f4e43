package gemini

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestSampleRate(t *testing.T) {
	cases := map[string]int{
		"audio/L16;codec=pcm;rate=24000": 24000,
		"audio/L16; rate=16000":          16000,
		"audio/L16":                      DefaultSampleRate,
		"audio/L16;rate=abc":             DefaultSampleRate,
		"":                               DefaultSampleRate,
	}
	for in, want := range cases {
		if got := sampleRate(in); got != want {
			t.Errorf("sampleRate(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestExtractAudio(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "ignored"},
			{InlineData: &genai.Blob{MIMEType: "audio/L16;codec=pcm;rate=22050", Data: []byte{1, 2}}},
			{InlineData: &genai.Blob{MIMEType: "audio/L16;codec=pcm;rate=22050", Data: []byte{3}}},
		}},
	}}}
	audio, rate, err := extractAudio(resp)
	if err != nil {
		t.Fatal(err)
	}
	if string(audio) != "\x01\x02\x03" || rate != 22050 {
		t.Errorf("got %v at %d", audio, rate)
	}
}

func TestExtractAudioEmpty(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "no audio"}}}}}},
	} {
		if _, _, err := extractAudio(resp); err == nil {
			t.Errorf("expected error for %+v", resp)
		}
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("expected error without API key")
	}
}
