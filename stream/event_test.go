package stream

import (
	"strings"
	"testing"

	"github.com/kbukum/chatstream/chat"
)

func TestEncodeMessages_EmptyBatch(t *testing.T) {
	for _, batch := range [][]chat.Message{nil, {}} {
		frame, err := EncodeMessages(batch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(frame) != "event: message\ndata: []\n\n" {
			t.Errorf("expected empty array frame, got %q", frame)
		}
	}
}

func TestEncodeMessages_Batch(t *testing.T) {
	frame, err := EncodeMessages([]chat.Message{msgAt("m1", base)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(frame)
	if !strings.HasPrefix(s, "event: message\ndata: [{") || !strings.HasSuffix(s, "}]\n\n") {
		t.Errorf("unexpected frame %q", s)
	}
	if strings.Count(s, "\n") != 3 {
		t.Errorf("expected a single data line, got %q", s)
	}
	for _, want := range []string{`"id":"m1"`, `"sender":"1"`, `"updatedAt":"2024-03-01T12:00:00Z"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected frame to contain %s, got %q", want, s)
		}
	}
}

func TestFixedFrames(t *testing.T) {
	if string(PingFrame) != "event: ping\ndata: keep-alive\n\n" {
		t.Errorf("unexpected ping frame %q", PingFrame)
	}
	if string(ConnectedFrame) != "data: {\"type\":\"connected\"}\n\n" {
		t.Errorf("unexpected connected frame %q", ConnectedFrame)
	}
	if got := string(EncodeError(ErrorCodeStoreUnavailable)); got != "event: error\ndata: {\"code\":\"store_unavailable\"}\n\n" {
		t.Errorf("unexpected error frame %q", got)
	}
}
