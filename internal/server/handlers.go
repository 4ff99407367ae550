package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wirebus/wirebus/internal/event"
	"github.com/wirebus/wirebus/internal/hook"
)

// emitRequest is the body of POST /event.
type emitRequest struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Data   any    `json:"data"`
}

// emitEvent injects an event into the bus on behalf of an external emitter.
func (s *Server) emitEvent(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "type is required")
		return
	}
	if req.Source == "" {
		req.Source = "http"
	}

	e := event.New(event.Type(req.Type), req.Source, req.Data)
	s.system.Events.EmitRaw(e)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":       e.ID,
		"type":     e.Type,
		"category": e.Category,
	})
}

// callHook dispatches a hook chain and returns the final context, so HTTP
// callers can honor advisory cancellation the same way in-process callers do.
func (s *Server) callHook(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "hook name is required")
		return
	}

	// An empty body means a nil hook payload.
	var data any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	hc := s.system.Hooks.Call(r.Context(), hook.Name(name), data)
	writeJSON(w, http.StatusOK, hc)
}

// health reports liveness.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
