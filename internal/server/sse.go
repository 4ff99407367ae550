package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wirebus/wirebus/internal/event"
	"github.com/wirebus/wirebus/internal/logging"
)

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// writeEvent writes one SSE frame.
func (s *sseWriter) writeEvent(name string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, jsonData)
	if err != nil {
		return err
	}

	// ResponseController flushes through middleware wrappers; fall back to
	// the plain flusher when it cannot.
	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}
	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// streamEvents streams bus events over SSE. An optional ?pattern= query
// narrows the stream with the bus's wildcard syntax; a malformed pattern is
// a 400, mirroring the bus's registration-time validation.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Buffered per-client channel; a slow client drops events rather than
	// blocking dispatch.
	buffer := s.config.SSE.Buffer
	if buffer <= 0 {
		buffer = 10
	}
	events := make(chan event.Event, buffer)
	deliver := func(e event.Event) error {
		select {
		case events <- e:
		default:
			logging.Warn().
				Str("eventType", string(e.Type)).
				Msg("SSE event dropped: channel full")
		}
		return nil
	}

	var unsub func()
	if pattern != "" {
		var err error
		unsub, err = s.system.Events.OnPattern(pattern, deliver)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
	} else {
		unsub = s.system.Events.OnAny(deliver)
	}
	defer unsub()

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Flush headers immediately so the client sees the stream open before
	// the first event arrives.
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	if err := sse.writeEvent("connected", map[string]any{"pattern": pattern}); err != nil {
		return
	}

	heartbeat := time.Duration(s.config.SSE.HeartbeatSeconds) * time.Second
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := sse.writeEvent("message", e); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
