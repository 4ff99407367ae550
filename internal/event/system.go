package event

import (
	"sync"

	"github.com/wirebus/wirebus/internal/hook"
)

// System composes one event bus and one hook bus behind a single facade.
// Subsystems that want a namespaced view call Scoped; everything else uses
// the two buses directly.
type System struct {
	Events *Bus
	Hooks  *hook.Bus
}

// NewSystem creates a system with fresh buses.
func NewSystem() *System {
	return &System{
		Events: NewBus(),
		Hooks:  hook.NewBus(),
	}
}

// Scoped returns a namespaced view over the system's buses.
func (s *System) Scoped(prefix, source string) *Scope {
	return NewScope(s.Events, s.Hooks, prefix, source)
}

// Clear drops every registration on both buses.
func (s *System) Clear() {
	s.Events.Clear()
	s.Hooks.Clear()
}

var (
	defaultMu     sync.Mutex
	defaultSystem *System
)

// Default returns the process-wide system, creating it on first use.
func Default() *System {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultSystem == nil {
		defaultSystem = NewSystem()
	}
	return defaultSystem
}

// ResetDefault clears the process-wide system's registrations and drops the
// instance so the next Default call starts fresh. Test isolation only; never
// called in steady-state operation.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultSystem != nil {
		defaultSystem.Clear()
		defaultSystem = nil
	}
}
