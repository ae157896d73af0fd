package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/chatstream/sseclient"
)

func TestTailPrint(t *testing.T) {
	data := `[{"id":"a","sender":"1","receiver":"2","content":"hello","createdAt":"2024-05-01T12:00:00Z","updatedAt":"2024-05-01T12:00:00Z"}]`

	t.Run("messages are formatted", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := &TailCmd{styles: newTailStyles(&buf)}
		require.NoError(t, cmd.print(&buf, &sseclient.Event{Event: "message", Data: data}))
		assert.Contains(t, buf.String(), "1 -> 2: hello")
	})

	t.Run("raw prints data", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := &TailCmd{raw: true, styles: newTailStyles(&buf)}
		require.NoError(t, cmd.print(&buf, &sseclient.Event{Event: "message", Data: data}))
		assert.Equal(t, "message: "+data+"\n", buf.String())
	})

	t.Run("pings hidden by default", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&TailCmd{styles: newTailStyles(&buf)}).print(&buf, &sseclient.Event{Event: "ping", Data: "keep-alive"}))
		assert.Empty(t, buf.String())

		require.NoError(t, (&TailCmd{pings: true, styles: newTailStyles(&buf)}).print(&buf, &sseclient.Event{Event: "ping", Data: "keep-alive"}))
		assert.Equal(t, "ping: keep-alive\n", buf.String())
	})

	t.Run("data-only events", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&TailCmd{styles: newTailStyles(&buf)}).print(&buf, &sseclient.Event{Data: `{"type":"connected"}`}))
		assert.Equal(t, "data: {\"type\":\"connected\"}\n", buf.String())
	})

	t.Run("long lines truncated to width", func(t *testing.T) {
		// The prefix "2024-05-01 12:00:00  1 -> 2: " is 29 columns.
		var buf bytes.Buffer
		require.NoError(t, (&TailCmd{width: 33, styles: newTailStyles(&buf)}).print(&buf, &sseclient.Event{Event: "message", Data: data}))
		assert.Contains(t, buf.String(), "1 -> 2: hel…\n")

		buf.Reset()
		require.NoError(t, (&TailCmd{width: 34, styles: newTailStyles(&buf)}).print(&buf, &sseclient.Event{Event: "message", Data: data}))
		assert.Contains(t, buf.String(), "1 -> 2: hello\n")
	})

	t.Run("bad payload", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, (&TailCmd{styles: newTailStyles(&buf)}).print(&buf, &sseclient.Event{Event: "message", Data: "nope"}))
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé…", truncate("héllo", 3))
	assert.Equal(t, "…", truncate("héllo", 0))
}

func TestTerminalWidthOfBuffer(t *testing.T) {
	assert.Zero(t, terminalWidth(&bytes.Buffer{}))
}
