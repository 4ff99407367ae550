package event

import (
	"context"
	"testing"

	"github.com/wirebus/wirebus/internal/hook"
)

func newTestScope(prefix, source string) (*Scope, *Bus, *hook.Bus) {
	events := NewBus()
	hooks := hook.NewBus()
	return NewScope(events, hooks, prefix, source), events, hooks
}

func TestScope_EmitPrefixesType(t *testing.T) {
	scope, bus, _ := newTestScope("channel", "channel-manager")

	var received Event
	bus.On("channel.connected", func(e Event) error {
		received = e
		return nil
	})

	scope.Emit("connected", map[string]any{"channelId": "c1"})

	if received.Type != "channel.connected" {
		t.Errorf("Expected type channel.connected, got %q", received.Type)
	}
	if received.Source != "channel-manager" {
		t.Errorf("Expected source channel-manager, got %q", received.Source)
	}
	if received.Category != CategoryChannel {
		t.Errorf("Expected channel category, got %v", received.Category)
	}
	data, ok := received.Data.(map[string]any)
	if !ok || data["channelId"] != "c1" {
		t.Errorf("Expected payload to pass through, got %v", received.Data)
	}
}

func TestScope_OnSeesGlobalEmits(t *testing.T) {
	scope, bus, _ := newTestScope("channel", "channel-manager")

	var count int
	unsub := scope.On("connected", func(e Event) error {
		count++
		return nil
	})
	defer unsub()

	// Scoped listeners intentionally see fully-qualified emits from anyone.
	bus.Emit("channel.connected", "someone-else", nil)

	if count != 1 {
		t.Errorf("Expected scoped listener to receive global emit, got %d", count)
	}
}

func TestScope_OnAll(t *testing.T) {
	scope, _, _ := newTestScope("channel", "channel-manager")

	var count int
	unsub := scope.OnAll(func(e Event) error {
		count++
		return nil
	})
	defer unsub()

	scope.Emit("connected", nil)
	scope.Emit("message.received", nil)
	scope.Emit("error", nil)

	if count != 3 {
		t.Errorf("Expected 3 deliveries under the scope, got %d", count)
	}
}

func TestScope_OnAllIgnoresOtherScopes(t *testing.T) {
	events := NewBus()
	hooks := hook.NewBus()
	channel := NewScope(events, hooks, "channel", "channel-manager")
	gateway := NewScope(events, hooks, "gateway", "gateway-manager")

	var count int
	channel.OnAll(func(e Event) error {
		count++
		return nil
	})

	gateway.Emit("connected", nil)

	if count != 0 {
		t.Errorf("Expected 0 deliveries from another scope, got %d", count)
	}
}

func TestScope_Nesting(t *testing.T) {
	root, bus, _ := newTestScope("root", "root-source")

	var received Event
	bus.On("root.a.b.c", func(e Event) error {
		received = e
		return nil
	})

	root.Scoped("a").Scoped("b").Emit("c", "payload")

	if received.Type != "root.a.b.c" {
		t.Errorf("Expected type root.a.b.c, got %q", received.Type)
	}
	if received.Data != "payload" {
		t.Errorf("Expected payload, got %v", received.Data)
	}
}

func TestScope_SourceInheritance(t *testing.T) {
	root, bus, _ := newTestScope("root", "parent-source")

	var sources []string
	bus.OnAny(func(e Event) error {
		sources = append(sources, e.Source)
		return nil
	})

	root.Scoped("a").Emit("x", nil)
	root.Scoped("b", "child-source").Emit("x", nil)

	if len(sources) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(sources))
	}
	if sources[0] != "parent-source" {
		t.Errorf("Expected inherited source, got %q", sources[0])
	}
	if sources[1] != "child-source" {
		t.Errorf("Expected overridden source, got %q", sources[1])
	}
}

func TestScope_Hooks(t *testing.T) {
	scope, _, hooks := newTestScope("channel", "channel-manager")

	var sawName string
	hooks.Tap("channel:send", func(ctx context.Context, hc *hook.Context) error {
		sawName = hc.Type
		hc.Data = "rewritten"
		return nil
	})

	hc := scope.Hooks().Call(context.Background(), "send", "original")

	if sawName != "channel:send" {
		t.Errorf("Expected scoped hook name channel:send, got %q", sawName)
	}
	if hc.Data != "rewritten" {
		t.Errorf("Expected mutated data, got %v", hc.Data)
	}
}

func TestScope_NestedHookNames(t *testing.T) {
	root, _, hooks := newTestScope("root", "src")
	child := root.Scoped("plugin")

	var sawName string
	child.Hooks().Tap("load", func(ctx context.Context, hc *hook.Context) error {
		sawName = hc.Type
		return nil
	})

	hooks.Call(context.Background(), "root.plugin:load", nil)

	if sawName != "root.plugin:load" {
		t.Errorf("Expected root.plugin:load, got %q", sawName)
	}
}
