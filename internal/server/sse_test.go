package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirebus/wirebus/internal/event"
)

func TestNewSSEWriter(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := newSSEWriter(w)
	require.NoError(t, err)
	require.NotNil(t, sse)
}

func TestNewSSEWriter_NoFlusher(t *testing.T) {
	_, err := newSSEWriter(&noFlushWriter{})
	assert.Error(t, err)
}

type noFlushWriter struct{}

func (n *noFlushWriter) Header() http.Header       { return http.Header{} }
func (n *noFlushWriter) Write([]byte) (int, error) { return 0, nil }
func (n *noFlushWriter) WriteHeader(int)           {}

func TestSSEWriter_WriteEvent(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := newSSEWriter(w)
	require.NoError(t, err)

	require.NoError(t, sse.writeEvent("message", map[string]string{"k": "v"}))

	body := w.Body.String()
	assert.Contains(t, body, "event: message\n")
	assert.Contains(t, body, `data: {"k":"v"}`)
	assert.True(t, strings.HasSuffix(body, "\n\n"))
}

// readFrames reads SSE frames off the wire and sends each data payload.
func readFrames(t *testing.T, body *bufio.Scanner, frames chan<- string) {
	t.Helper()
	var name, data string
	for body.Scan() {
		line := body.Text()
		switch {
		case line == "":
			if name == "message" {
				frames <- data
			}
			name, data = "", ""
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamEvents(t *testing.T) {
	srv, sys := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/event?pattern=channel.**")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := make(chan string, 4)
	go readFrames(t, bufio.NewScanner(resp.Body), frames)

	// The subscription is registered before the handler writes its opening
	// frame, but give the scanner goroutine a beat before emitting.
	time.Sleep(50 * time.Millisecond)
	sys.Events.Emit("channel.connected", "adapter-1", map[string]any{"channelId": "c1"})
	sys.Events.Emit("gateway.connected", "other", nil) // filtered out

	select {
	case frame := <-frames:
		var e event.Event
		require.NoError(t, json.Unmarshal([]byte(frame), &e))
		assert.Equal(t, event.Type("channel.connected"), e.Type)
		assert.Equal(t, "adapter-1", e.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for streamed event")
	}

	select {
	case frame := <-frames:
		t.Fatalf("Expected filtered stream, got extra frame %s", frame)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStreamEvents_BadPattern(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/event?pattern=channel.**.error")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
