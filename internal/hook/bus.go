// Package hook provides the sequential, interceptable half of the gateway's
// dispatch system. A hook is a named extension point whose handlers run
// strictly in sequence, ordered by priority, against one mutable shared
// context. Cancellation is advisory: a handler may mark the context
// cancelled, later handlers still run, and the caller decides what the flag
// means for its own operation.
package hook

import (
	"context"
	"sort"
	"sync"

	"github.com/wirebus/wirebus/internal/logging"
	"github.com/wirebus/wirebus/internal/metrics"
)

// Name identifies a hook. Names are colon-delimited "category:action"
// strings, a namespace lexically disjoint from dot-delimited event types.
type Name string

// Known hook names tapped by the gateway's own subsystems; collaborators may
// call arbitrary colon-delimited names.
const (
	MessageReceived Name = "message:received"
	MessageSending  Name = "message:sending"
	ToolBefore      Name = "tool:before"
	ToolAfter       Name = "tool:after"
	PluginLoad      Name = "plugin:load"
	PluginUnload    Name = "plugin:unload"
	AgentBefore     Name = "agent:before"
)

// DefaultPriority is used when handlers are registered via Tap.
// Lower priorities run earlier.
const DefaultPriority = 10

// Context is the mutable state shared by every handler of one Call. Handlers
// mutate Data and Metadata in place; the final state is returned to the
// caller once the chain has run.
type Context struct {
	Type      string         `json:"type"`
	Data      any            `json:"data"`
	Cancelled bool           `json:"cancelled"`
	Metadata  map[string]any `json:"metadata"`
}

// Cancel marks the context cancelled. It does not stop later handlers in the
// same call; the caller must inspect Cancelled after Call returns.
func (c *Context) Cancel() {
	c.Cancelled = true
}

// Handler intercepts one hook call. A returned error is logged and the chain
// proceeds with the context as last mutated.
type Handler func(ctx context.Context, hc *Context) error

// tapEntry keeps registration order so equal priorities dispatch stably.
type tapEntry struct {
	id       uint64
	fn       Handler
	priority int
	seq      uint64
}

// Bus is the hook dispatcher. Each Call sorts a snapshot of the applicable
// handlers by (priority, registration order) and runs them one at a time;
// handlers registered mid-call join only subsequent calls.
type Bus struct {
	mu      sync.Mutex
	taps    map[Name][]tapEntry
	nextID  uint64
	nextSeq uint64
}

// NewBus creates a new hook bus.
func NewBus() *Bus {
	return &Bus{taps: make(map[Name][]tapEntry)}
}

// Tap registers a handler at DefaultPriority.
// Returns an unsubscribe function.
func (b *Bus) Tap(name Name, fn Handler) func() {
	return b.TapPriority(name, fn, DefaultPriority)
}

// TapPriority registers a handler with an explicit priority; lower values
// run earlier, ties run in registration order. Returns an unsubscribe
// function.
func (b *Bus) TapPriority(name Name, fn Handler, priority int) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.nextSeq++
	id := b.nextID
	b.taps[name] = append(b.taps[name], tapEntry{
		id:       id,
		fn:       fn,
		priority: priority,
		seq:      b.nextSeq,
	})
	return func() { b.untap(name, id) }
}

func (b *Bus) untap(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.taps[name]
	for i, entry := range entries {
		if entry.id == id {
			b.taps[name] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
}

// Call dispatches the named hook over data. Handlers run strictly in
// sequence; each sees the mutations made by every earlier handler. A failing
// handler (error or panic) is logged and the chain continues. Call never
// fails from a handler's point of view: it always returns the final context,
// Cancelled and all, and the caller decides whether to honor the flag.
func (b *Bus) Call(ctx context.Context, name Name, data any) *Context {
	hc := &Context{
		Type:     string(name),
		Data:     data,
		Metadata: make(map[string]any),
	}

	b.mu.Lock()
	entries := make([]tapEntry, len(b.taps[name]))
	copy(entries, b.taps[name])
	b.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})

	metrics.HookCalls.Inc()
	for _, entry := range entries {
		b.safeInvoke(ctx, entry.fn, hc)
	}
	return hc
}

func (b *Bus) safeInvoke(ctx context.Context, fn Handler, hc *Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrors.WithLabelValues("hook").Inc()
			logging.Error().
				Str("hook", hc.Type).
				Interface("panic", r).
				Msg("hook handler panicked")
		}
	}()

	if err := fn(ctx, hc); err != nil {
		metrics.HandlerErrors.WithLabelValues("hook").Inc()
		logging.Error().
			Err(err).
			Str("hook", hc.Type).
			Msg("hook handler failed")
	}
}

// Clear drops every tap registration.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taps = make(map[Name][]tapEntry)
}
