// Package busclient is a Go client for the wirebus HTTP surface. It streams
// bus events over SSE, reconnecting with exponential backoff, and can emit
// events into a remote bus.
package busclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Event mirrors the server's event envelope.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Data      any       `json:"data"`
}

// Handler receives streamed events.
type Handler func(Event)

// Client talks to a wirebus server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL, e.g. "http://127.0.0.1:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: the SSE stream is long-lived.
		http: &http.Client{},
	}
}

// Emit publishes an event into the remote bus.
func (c *Client) Emit(ctx context.Context, typ, source string, data any) error {
	body, err := json.Marshal(map[string]any{
		"type":   typ,
		"source": source,
		"data":   data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/event", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("emit: unexpected status %s", resp.Status)
	}
	return nil
}

// Stream subscribes to the server's event stream and invokes fn for every
// event until ctx is done. An optional pattern narrows the stream with the
// bus's wildcard syntax. Dropped connections are retried with exponential
// backoff and jitter; backoff resets after each successful connect.
func (c *Client) Stream(ctx context.Context, pattern string, fn Handler) error {
	streamURL := c.baseURL + "/event"
	if pattern != "" {
		streamURL += "?pattern=" + url.QueryEscape(pattern)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry forever, until ctx is done

	operation := func() error {
		if err := c.stream(ctx, streamURL, fn); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		bo.Reset()
		return fmt.Errorf("stream closed")
	}

	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// stream runs one SSE connection until it drops or ctx is done.
func (c *Client) stream(ctx context.Context, streamURL string, fn Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream: unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName == "message" && len(data) > 0 {
				if e, ok := parseEvent(data); ok {
					fn(e)
				}
			}
			eventName = ""
			data = nil
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: ")...)
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		}
	}
	return scanner.Err()
}

func parseEvent(data []byte) (Event, bool) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, false
	}
	return e, true
}
