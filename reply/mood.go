package reply

import (
	"regexp"
	"strings"
)

// Moods the model is asked to choose from. Any bracketed word is accepted on parse.
const (
	MoodHappy    = "happy"
	MoodNeutral  = "neutral"
	MoodSelling  = "selling"
	MoodConfused = "confused"
	MoodThinking = "thinking"
)

var moodTag = regexp.MustCompile(`^\[([\p{L}\p{N}_]+)\]`)

// ParseMood splits a leading [tag] off the model reply. Without a tag the mood is
// neutral and the content is the whole reply, trimmed.
func ParseMood(text string) (mood, content string) {
	text = strings.TrimSpace(text)
	m := moodTag.FindStringSubmatchIndex(text)
	if m == nil {
		return MoodNeutral, text
	}
	return text[m[2]:m[3]], strings.TrimSpace(text[m[1]:])
}
