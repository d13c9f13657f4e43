package chat

import (
	"encoding/json"
	"fmt"
)

// MethodChat is the only event method that triggers reply processing.
const MethodChat = "WebcastChatMessage"

// DefaultUserName is used when an event carries no user name.
const DefaultUserName = "Unknown User"

// Event is one incoming chat line.
type Event struct {
	Method   string
	UserName string
	Content  string
}

// IsChat reports whether the event is a chat message with non-empty content.
func (e Event) IsChat() bool {
	return e.Method == MethodChat && e.Content != ""
}

type wireEvent struct {
	Method  string `json:"method"`
	Content string `json:"content"`
	User    struct {
		Name string `json:"name"`
	} `json:"user"`
}

// DecodeBatch parses a JSON array of chat events. Elements that are not event
// objects are skipped; only a frame that is not an array at all is an error.
func DecodeBatch(data []byte) ([]Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode chat batch: %w", err)
	}
	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		var w wireEvent
		if err := json.Unmarshal(r, &w); err != nil {
			continue
		}
		name := w.User.Name
		if name == "" {
			name = DefaultUserName
		}
		events = append(events, Event{Method: w.Method, UserName: name, Content: w.Content})
	}
	return events, nil
}
