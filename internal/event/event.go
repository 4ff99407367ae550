package event

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type identifies an event. Types are dot-delimited, case-sensitive and
// hierarchical: the first segment is the event's category.
type Type string

// Known event types emitted by the gateway's own subsystems. Collaborators
// may emit arbitrary dot-delimited types; these constants exist only as a
// compile-time aid.
const (
	ChannelConnected    Type = "channel.connected"
	ChannelDisconnected Type = "channel.disconnected"
	ChannelError        Type = "channel.error"
	MessageReceived     Type = "message.received"
	MessageSent         Type = "message.sent"
	ToolStarted         Type = "tool.started"
	ToolCompleted       Type = "tool.completed"
	ToolFailed          Type = "tool.failed"
	PluginLoaded        Type = "plugin.loaded"
	PluginUnloaded      Type = "plugin.unloaded"
	PluginError         Type = "plugin.error"
	AgentStarted        Type = "agent.started"
	AgentComplete       Type = "agent.complete"
	ConfigUpdated       Type = "config.updated"
)

// Category is the coarse classification of an event, derived from the first
// dot-segment of its type.
type Category string

const (
	CategoryChannel Category = "channel"
	CategoryMessage Category = "message"
	CategoryTool    Category = "tool"
	CategoryPlugin  Category = "plugin"
	CategoryAgent   Category = "agent"
	CategoryConfig  Category = "config"
	// CategoryCustom is the fallback for types whose first segment is not a
	// known category. Unknown categories never fail derivation.
	CategoryCustom Category = "custom"
)

var knownCategories = map[Category]bool{
	CategoryChannel: true,
	CategoryMessage: true,
	CategoryTool:    true,
	CategoryPlugin:  true,
	CategoryAgent:   true,
	CategoryConfig:  true,
}

// DeriveCategory returns the category for an event type: its first dot
// segment if recognized, CategoryCustom otherwise.
func DeriveCategory(typ Type) Category {
	seg := string(typ)
	if i := strings.IndexByte(seg, '.'); i >= 0 {
		seg = seg[:i]
	}
	if c := Category(seg); knownCategories[c] {
		return c
	}
	return CategoryCustom
}

// Event is an immutable broadcast notification. Category is always derivable
// from Type's first segment; New keeps the two consistent.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Data      any       `json:"data"`
}

// New builds an event envelope with a fresh ID and the current time.
func New(typ Type, source string, data any) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      typ,
		Category:  DeriveCategory(typ),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Data:      data,
	}
}

// Handler receives events. A returned error is logged at the dispatch site
// and never reaches the emitter.
type Handler func(Event) error
