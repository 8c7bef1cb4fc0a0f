// Package notify carries user-facing notifications and console commands.
// It is separate from diagnostic logging: notifications are what the console shows.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// Type classifies a notification
type Type int

const (
	Info Type = iota
	Warning
	Error
	Command
	Debug
	Other
)

var typeNames = [...]string{"info", "warning", "error", "command", "debug", "other"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Label is the console prefix for the type
func (t Type) Label() string {
	switch t {
	case Info:
		return "[INFO]"
	case Warning:
		return "[WARNING]"
	case Error:
		return "[ERROR]"
	case Command:
		return ">"
	default:
		return ""
	}
}

// ParseType looks up a type by the name String returns
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown notification type %q", name)
}

// MarshalJSON encodes the type by name
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a type name written by MarshalJSON
func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Notification is one console line
type Notification struct {
	Type    Type      `json:"type"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// String renders the line the way the console shows it
func (n Notification) String() string {
	if label := n.Type.Label(); label != "" {
		return label + " " + n.Content
	}
	return n.Content
}

// Sink receives notifications
type Sink interface {
	Notify(t Type, content string)
}

// Discard drops everything
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Type, string) {}

// LogSink mirrors notifications into the structured logger
type LogSink struct{}

// Notify implements Sink
func (LogSink) Notify(t Type, content string) {
	level := slog.LevelInfo
	switch t {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	case Debug:
		level = slog.LevelDebug
	}
	core.Log().Log(context.Background(), level, content, "notification", t.String())
}

// ChannelSink forwards notifications to a channel without blocking.
// When the channel is full the notification is dropped.
type ChannelSink struct {
	ch chan<- Notification
}

// NewChannelSink creates a sink over ch; a nil channel drops everything
func NewChannelSink(ch chan<- Notification) *ChannelSink {
	return &ChannelSink{ch: ch}
}

// Notify implements Sink
func (c *ChannelSink) Notify(t Type, content string) {
	if c.ch == nil {
		return
	}
	select {
	case c.ch <- Notification{Type: t, Content: content, Time: time.Now()}:
	default:
		// Channel full, skip (don't block)
	}
}

// Multi fans out to several sinks in order
type Multi []Sink

// Notify implements Sink
func (m Multi) Notify(t Type, content string) {
	for _, s := range m {
		s.Notify(t, content)
	}
}

// DefaultHistorySize is the number of lines kept when no size is given
const DefaultHistorySize = 256

// History keeps the most recent notifications for display
type History struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewHistory creates a history bounded to limit entries
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

// Notify implements Sink
func (h *History) Notify(t Type, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, Notification{Type: t, Content: content, Time: time.Now()})
	if over := len(h.items) - h.limit; over > 0 {
		h.items = append(h.items[:0], h.items[over:]...)
	}
}

// Items returns a copy of the retained notifications, oldest first
func (h *History) Items() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notification(nil), h.items...)
}

// Clear drops all retained notifications
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}

// Broadcaster delivers notifications to any number of subscribers.
// Slow subscribers lose notifications rather than blocking the sender.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Notification]struct{}
}

// NewBroadcaster creates a broadcaster with no subscribers
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Notification]struct{})}
}

// Subscribe returns a channel of future notifications and a function that
// unsubscribes and closes it
func (b *Broadcaster) Subscribe(buffer int) (<-chan Notification, func()) {
	ch := make(chan Notification, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Notify implements Sink
func (b *Broadcaster) Notify(t Type, content string) {
	n := Notification{Type: t, Content: content, Time: time.Now()}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
