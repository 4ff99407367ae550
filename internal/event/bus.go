// Package event provides the fire-and-forget pub/sub half of the gateway's
// dispatch system, built on watermill's gochannel infrastructure while
// keeping direct-call semantics so handlers receive typed envelopes.
//
// Subscriptions come in four kinds: exact type, wildcard pattern, category,
// and catch-all. Within one Emit the kinds run in that fixed order; within a
// kind, handlers run in registration order. Nothing in the gateway may rely
// on ordering across unrelated Emit calls.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/wirebus/wirebus/internal/logging"
	"github.com/wirebus/wirebus/internal/metrics"
)

// ErrWaitTimeout is returned by WaitFor when no matching event arrives
// within the given window.
var ErrWaitTimeout = errors.New("timed out waiting for event")

// subscriberEntry wraps a handler with an ID for unsubscription. once
// entries are removed from the registry before their handler runs.
type subscriberEntry struct {
	id    uint64
	fn    Handler
	fnPtr uintptr
	once  bool
}

// patternEntry is a wildcard subscription. The pattern is validated at
// registration; matching is segment-wise at dispatch.
type patternEntry struct {
	id      uint64
	pattern string
	fn      Handler
}

// Bus is the event bus. Dispatch always iterates a snapshot of the matching
// registries, so handlers may subscribe, unsubscribe or re-entrantly emit
// without corrupting an in-flight delivery.
type Bus struct {
	mu sync.Mutex

	// Watermill pub/sub infrastructure; every emitted event is mirrored
	// into it (topic = category) for bridge and middleware consumers.
	pubsub *gochannel.GoChannel

	exact      map[Type][]subscriberEntry
	categories map[Category][]subscriberEntry
	patterns   []patternEntry
	global     []subscriberEntry

	nextID uint64
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		exact:      make(map[Type][]subscriberEntry),
		categories: make(map[Category][]subscriberEntry),
	}
}

func (b *Bus) newID() uint64 {
	b.nextID++
	return b.nextID
}

// On registers a handler for one exact event type.
// Returns an unsubscribe function.
func (b *Bus) On(typ Type, fn Handler) func() {
	return b.subscribe(typ, fn, false)
}

// Once registers a handler invoked for at most one event of the given type.
// The subscription is removed before the handler runs, so re-entrant emits
// from inside the handler cannot trigger it a second time.
func (b *Bus) Once(typ Type, fn Handler) func() {
	return b.subscribe(typ, fn, true)
}

func (b *Bus) subscribe(typ Type, fn Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.exact[typ] = append(b.exact[typ], subscriberEntry{
		id:    id,
		fn:    fn,
		fnPtr: reflect.ValueOf(fn).Pointer(),
		once:  once,
	})
	return func() { b.unsubscribe(typ, id) }
}

// OnAny registers a catch-all handler invoked for every event.
// Returns an unsubscribe function.
func (b *Bus) OnAny(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribeGlobal(id) }
}

// OnCategory registers a handler for every event whose derived category
// matches, independent of exact type. Returns an unsubscribe function.
func (b *Bus) OnCategory(cat Category, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.categories[cat] = append(b.categories[cat], subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribeCategory(cat, id) }
}

// OnPattern registers a handler for every event type matching a dot-segmented
// wildcard pattern: "*" matches exactly one segment, "**" matches one or more
// segments and is only legal as the final segment. Malformed patterns fail
// here, at registration, never at dispatch. Returns an unsubscribe function.
func (b *Bus) OnPattern(pattern string, fn Handler) (func(), error) {
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}, nil
	}

	id := b.newID()
	b.patterns = append(b.patterns, patternEntry{id: id, pattern: pattern, fn: fn})
	return func() { b.unsubscribePattern(id) }, nil
}

// Off removes one exact-type subscription identified by its handler func.
// Prefer the unsubscribe closure returned at registration; Off exists for
// callers that cannot retain it.
func (b *Bus) Off(typ Type, fn Handler) {
	ptr := reflect.ValueOf(fn).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.exact[typ]
	for i, entry := range subs {
		if entry.fnPtr == ptr {
			b.exact[typ] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribe(typ Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.exact[typ]
	for i, entry := range subs {
		if entry.id == id {
			b.exact[typ] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i:i], b.global[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeCategory(cat Category, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.categories[cat]
	for i, entry := range subs {
		if entry.id == id {
			b.categories[cat] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribePattern(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.patterns {
		if entry.id == id {
			b.patterns = append(b.patterns[:i:i], b.patterns[i+1:]...)
			break
		}
	}
}

// Emit builds an event envelope and dispatches it synchronously. Handler
// failures are caught and logged per handler; Emit never returns an error to
// the emitter. Handlers needing asynchronous work spawn their own goroutines.
func (b *Bus) Emit(typ Type, source string, data any) {
	b.EmitRaw(New(typ, source, data))
}

// EmitRaw dispatches an already-built envelope. Used by scoped buses whose
// prefixed types are not part of any compile-time catalog.
func (b *Bus) EmitRaw(e Event) {
	subs := b.collect(e)
	if subs == nil {
		return
	}

	metrics.EventsEmitted.WithLabelValues(string(e.Category)).Inc()
	for _, fn := range subs {
		b.safeInvoke(fn, e)
	}
	b.mirror(e)
}

// EmitAsync dispatches like Emit but runs each handler in its own goroutine.
// No ordering is guaranteed among handlers of one EmitAsync call.
func (b *Bus) EmitAsync(typ Type, source string, data any) {
	e := New(typ, source, data)
	subs := b.collect(e)
	if subs == nil {
		return
	}

	metrics.EventsEmitted.WithLabelValues(string(e.Category)).Inc()
	for _, fn := range subs {
		go b.safeInvoke(fn, e)
	}
	b.mirror(e)
}

// collect snapshots every handler matching e, in dispatch order:
// exact type, then pattern, then category, then catch-all. Once entries are
// removed from the registry here, before any handler runs, which makes their
// exactly-once guarantee hold even under re-entrant emits. Returns nil when
// the bus is closed.
func (b *Bus) collect(e Event) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	subs := make([]Handler, 0,
		len(b.exact[e.Type])+len(b.patterns)+len(b.categories[e.Category])+len(b.global))

	entries := b.exact[e.Type]
	kept := entries[:0:0]
	for _, entry := range entries {
		subs = append(subs, entry.fn)
		if !entry.once {
			kept = append(kept, entry)
		}
	}
	if len(kept) != len(entries) {
		b.exact[e.Type] = kept
	}

	for _, entry := range b.patterns {
		if matchPattern(entry.pattern, e.Type) {
			subs = append(subs, entry.fn)
		}
	}
	for _, entry := range b.categories[e.Category] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs
}

// safeInvoke runs one handler, converting returned errors and panics into
// log entries so a broken listener cannot take down the emitter or its
// sibling listeners.
func (b *Bus) safeInvoke(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrors.WithLabelValues("event").Inc()
			logging.Error().
				Str("eventType", string(e.Type)).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()

	metrics.EventDeliveries.Inc()
	if err := fn(e); err != nil {
		metrics.HandlerErrors.WithLabelValues("event").Inc()
		logging.Error().
			Err(err).
			Str("eventType", string(e.Type)).
			Str("source", e.Source).
			Msg("event handler failed")
	}
}

// mirror publishes the envelope onto the watermill channel, topic = category.
// Bridge consumers subscribe there; direct handlers never go through it.
func (b *Bus) mirror(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		logging.Debug().Err(err).Str("eventType", string(e.Type)).Msg("event not mirrorable")
		return
	}
	if err := b.pubsub.Publish(string(e.Category), message.NewMessage(e.ID, payload)); err != nil {
		logging.Debug().Err(err).Str("eventType", string(e.Type)).Msg("event mirror publish failed")
	}
}

// WaitFor blocks until the next event of the given type arrives, the timeout
// expires, or ctx is done. A timeout <= 0 means no timeout. The one-shot
// subscription is removed on every branch.
func (b *Bus) WaitFor(ctx context.Context, typ Type, timeout time.Duration) (Event, error) {
	ch := make(chan Event, 1)
	unsub := b.Once(typ, func(e Event) error {
		ch <- e
		return nil
	})
	defer unsub()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case e := <-ch:
		return e, nil
	case <-timer:
		metrics.WaitTimeouts.Inc()
		return Event{}, ErrWaitTimeout
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Clear drops every registration. Pending WaitFor calls will no longer be
// woken by events; their timers and contexts still apply.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.exact = make(map[Type][]subscriberEntry)
	b.categories = make(map[Category][]subscriberEntry)
	b.patterns = nil
	b.global = nil
}

// Close clears the bus, rejects further registrations and emits, and shuts
// down the watermill mirror.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.exact = make(map[Type][]subscriberEntry)
	b.categories = make(map[Category][]subscriberEntry)
	b.patterns = nil
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// PubSub returns the underlying watermill GoChannel carrying mirrored
// events, for middleware, routing, or distributed bridges.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
