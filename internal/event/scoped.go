package event

import (
	"context"

	"github.com/wirebus/wirebus/internal/hook"
)

// Scope is a namespaced projection over one shared event bus and one shared
// hook bus. It holds no handlers of its own: it computes prefixed names and
// delegates, so a scoped listener and a global listener using the same
// fully-qualified type see exactly the same events. Event types join with
// ".", hook names with ":".
type Scope struct {
	prefix string
	source string
	events *Bus
	hooks  *hook.Bus
}

// NewScope creates a scope over the given buses. source is the emitter
// identity stamped on every event the scope emits.
func NewScope(events *Bus, hooks *hook.Bus, prefix, source string) *Scope {
	return &Scope{
		prefix: prefix,
		source: source,
		events: events,
		hooks:  hooks,
	}
}

// Prefix returns the scope's fully-qualified prefix.
func (s *Scope) Prefix() string {
	return s.prefix
}

// Emit publishes under the scope's prefix: a scope with prefix "channel"
// emitting "connected" produces a "channel.connected" event on the shared
// bus, with the scope's source and the category derived from the full type.
func (s *Scope) Emit(typ Type, data any) {
	s.events.EmitRaw(New(s.fullType(typ), s.source, data))
}

// On subscribes on the shared bus using the prefixed type.
// Returns an unsubscribe function.
func (s *Scope) On(typ Type, fn Handler) func() {
	return s.events.On(s.fullType(typ), fn)
}

// Once subscribes for at most one event of the prefixed type.
// Returns an unsubscribe function.
func (s *Scope) Once(typ Type, fn Handler) func() {
	return s.events.Once(s.fullType(typ), fn)
}

// OnAll subscribes to every event nested at any depth under this scope.
// Returns an unsubscribe function.
func (s *Scope) OnAll(fn Handler) func() {
	// prefix + ".**" is built from a validated prefix, never user input.
	unsub, err := s.events.OnPattern(s.prefix+".**", fn)
	if err != nil {
		return func() {}
	}
	return unsub
}

// Scoped returns a child scope nested under this one. The child inherits the
// parent's source unless one is given. Nesting is unbounded.
func (s *Scope) Scoped(subPrefix string, source ...string) *Scope {
	src := s.source
	if len(source) > 0 && source[0] != "" {
		src = source[0]
	}
	return NewScope(s.events, s.hooks, s.prefix+"."+subPrefix, src)
}

// Hooks returns the scope's namespaced view of the shared hook bus.
func (s *Scope) Hooks() ScopedHooks {
	return ScopedHooks{scope: s}
}

func (s *Scope) fullType(typ Type) Type {
	return Type(s.prefix + "." + string(typ))
}

// ScopedHooks prefixes hook names with the scope's prefix and delegates to
// the shared hook bus. The ":" join keeps hook names disjoint from event
// patterns by construction.
type ScopedHooks struct {
	scope *Scope
}

// Tap registers a handler on the prefixed hook at hook.DefaultPriority.
// Returns an unsubscribe function.
func (h ScopedHooks) Tap(name hook.Name, fn hook.Handler) func() {
	return h.scope.hooks.Tap(h.fullName(name), fn)
}

// TapPriority registers a handler on the prefixed hook with an explicit
// priority. Returns an unsubscribe function.
func (h ScopedHooks) TapPriority(name hook.Name, fn hook.Handler, priority int) func() {
	return h.scope.hooks.TapPriority(h.fullName(name), fn, priority)
}

// Call dispatches the prefixed hook and returns the final context.
func (h ScopedHooks) Call(ctx context.Context, name hook.Name, data any) *hook.Context {
	return h.scope.hooks.Call(ctx, h.fullName(name), data)
}

func (h ScopedHooks) fullName(name hook.Name) hook.Name {
	return hook.Name(h.scope.prefix + ":" + string(name))
}
