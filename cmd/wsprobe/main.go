// Command wsprobe connects to the websocket endpoint, sends one frame and prints
// everything received until -wait elapses. It sends a chat event carrying -text,
// or a control frame when -action is set.
//
//	wsprobe -url ws://localhost:8080/ws -text "这个多少钱"
//	wsprobe -action get_config
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/livereply/chat"
)

type probeUser struct {
	Name string `json:"name"`
}

type probeEvent struct {
	Method  string    `json:"method"`
	Content string    `json:"content"`
	User    probeUser `json:"user"`
}

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "websocket endpoint")
	text := flag.String("text", "", "chat message to send")
	user := flag.String("user", "wsprobe", "user name for the chat message")
	action := flag.String("action", "", "control action to send instead of a chat message (get_config, test_speech)")
	wait := flag.Duration("wait", 30*time.Second, "how long to print incoming frames")
	flag.Parse()

	frame, err := buildFrame(*action, *text, *user)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		slog.Error("dial failed", slog.String("url", *url), slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		slog.Error("send failed", slog.Any("err", err))
		os.Exit(1)
	}

	_ = conn.SetReadDeadline(time.Now().Add(*wait))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				slog.Error("read failed", slog.Any("err", err))
				os.Exit(1)
			}
			return
		}
		fmt.Println(summarize(data))
	}
}

func buildFrame(action, text, user string) ([]byte, error) {
	switch action {
	case "":
		if text == "" {
			return nil, errors.New("either -text or -action is required")
		}
		return json.Marshal([]probeEvent{{Method: chat.MethodChat, Content: text, User: probeUser{Name: user}}})
	case "test_speech":
		if text == "" {
			return nil, errors.New("-action test_speech needs -text")
		}
		return json.Marshal(map[string]string{"action": action, "text": text})
	default:
		return json.Marshal(map[string]string{"action": action})
	}
}

// summarize shortens audio payloads so frames stay readable on a terminal.
func summarize(data []byte) string {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return string(data)
	}
	if a, ok := m["audio_base64"].(string); ok {
		m["audio_base64"] = fmt.Sprintf("(%d base64 chars)", len(a))
	}
	out, err := json.Marshal(m)
	if err != nil {
		return string(data)
	}
	return string(out)
}
