package reply

import (
	"encoding/json"
	"testing"
)

func TestParseMood(t *testing.T) {
	cases := []struct {
		in, mood, content string
	}{
		{"[happy] 欢迎来到直播间！", MoodHappy, "欢迎来到直播间！"},
		{"  [selling]现在下单立减十元  ", MoodSelling, "现在下单立减十元"},
		{"没有标签的回复", MoodNeutral, "没有标签的回复"},
		{"[excited] 好耶", "excited", "好耶"},
		{"前面有字 [happy] 不算", MoodNeutral, "前面有字 [happy] 不算"},
		{"[not a tag] hi", MoodNeutral, "[not a tag] hi"},
		{"[thinking]", MoodThinking, ""},
	}
	for _, tc := range cases {
		mood, content := ParseMood(tc.in)
		if mood != tc.mood || content != tc.content {
			t.Errorf("ParseMood(%q) = (%q, %q), want (%q, %q)", tc.in, mood, content, tc.mood, tc.content)
		}
	}
}

func TestArtifactWireShape(t *testing.T) {
	a := NewArtifact("你好", "", "小王", "主播好")
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"ai_response","content":"你好","mood":"neutral","original_comment":{"user_name":"小王","text":"主播好"}}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}

	a.SetAudio([]byte{1, 2, 3}, 24000)
	data, _ = json.Marshal(a)
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["audio_base64"] != "AQID" || m["sampling_rate"] != float64(24000) {
		t.Errorf("audio fields wrong: %v", m)
	}
}

func TestSetAudioBothOrNeither(t *testing.T) {
	a := NewArtifact("x", MoodHappy, "u", "t")
	a.SetAudio([]byte{1}, 0)
	if a.HasAudio() || a.SampleRate != 0 {
		t.Errorf("audio without a rate must be dropped: %+v", a)
	}
	a.SetAudio(nil, 16000)
	if a.HasAudio() || a.SampleRate != 0 {
		t.Errorf("rate without audio must be dropped: %+v", a)
	}
}
