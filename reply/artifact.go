package reply

// ArtifactType is the wire type of every reply artifact.
const ArtifactType = "ai_response"

// OriginalComment identifies the chat line a reply answers.
type OriginalComment struct {
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

// Artifact is the reply broadcast to viewer clients. Audio is encoded as base64 on
// the wire; Audio and SampleRate are either both set or both empty (see SetAudio).
type Artifact struct {
	Type            string          `json:"type"`
	Content         string          `json:"content"`
	Mood            string          `json:"mood"`
	OriginalComment OriginalComment `json:"original_comment"`
	Audio           []byte          `json:"audio_base64,omitempty"`
	SampleRate      int             `json:"sampling_rate,omitempty"`
}

// NewArtifact returns a text-only artifact. An empty mood becomes neutral.
func NewArtifact(content, mood, userName, originalText string) *Artifact {
	if mood == "" {
		mood = MoodNeutral
	}
	return &Artifact{
		Type:            ArtifactType,
		Content:         content,
		Mood:            mood,
		OriginalComment: OriginalComment{UserName: userName, Text: originalText},
	}
}

// SetAudio attaches synthesized speech. Empty audio or a non-positive rate leaves
// the artifact text-only.
func (a *Artifact) SetAudio(audio []byte, sampleRate int) {
	if len(audio) == 0 || sampleRate <= 0 {
		a.Audio, a.SampleRate = nil, 0
		return
	}
	a.Audio, a.SampleRate = audio, sampleRate
}

// HasAudio reports whether speech is attached.
func (a *Artifact) HasAudio() bool { return len(a.Audio) > 0 }
