package chat

import (
	"testing"
)

func TestDecodeBatch(t *testing.T) {
	frame := `[
		{"method": "WebcastChatMessage", "content": "你好", "user": {"name": "小明"}},
		{"method": "WebcastGiftMessage", "content": "", "user": {"name": "小红"}},
		{"method": "WebcastChatMessage", "content": "没有名字"},
		42,
		{"method": "WebcastChatMessage", "content": 7}
	]`
	events, err := DecodeBatch([]byte(frame))
	if err != nil {
		t.Fatalf("DecodeBatch() error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].UserName != "小明" || events[0].Content != "你好" || !events[0].IsChat() {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].IsChat() {
		t.Errorf("gift event should not count as chat")
	}
	if events[2].UserName != DefaultUserName {
		t.Errorf("missing user should default to %q, got %q", DefaultUserName, events[2].UserName)
	}
}

func TestDecodeBatchRejectsNonArray(t *testing.T) {
	for _, frame := range []string{`{"action":"get_config"}`, `not json`, `"str"`} {
		if _, err := DecodeBatch([]byte(frame)); err == nil {
			t.Errorf("DecodeBatch(%s) expected error", frame)
		}
	}
}

func TestIsChatRequiresContent(t *testing.T) {
	if (Event{Method: MethodChat}).IsChat() {
		t.Errorf("empty content must not be processed")
	}
}
