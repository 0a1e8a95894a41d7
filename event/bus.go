package event

import (
	"fmt"
	"log/slog"
	"time"
)

// Handler processes a single event.
type Handler func(Event)

// Listener is the subscription contract for displays and other observers.
// A listener declares the events it cares about as an explicit map; the bus
// registers exactly those handlers and nothing else.
type Listener interface {
	Handlers() map[Name]Handler
}

// Bus is a synchronous publish/subscribe dispatcher. Handlers for a name run
// in registration order. A failing handler is logged and skipped; it never
// stops delivery to the remaining handlers and never aborts the emitter.
//
// The bus assumes a single-writer task loop and is not safe for concurrent
// registration and emission from multiple goroutines.
type Bus struct {
	handlers map[Name][]Handler
	log      *slog.Logger
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Name][]Handler),
		log:      slog.With("component", "event_bus"),
	}
}

// OnEvent registers a handler for an event name. Multiple handlers per name
// are allowed. Unknown names are legal; they simply have zero subscribers.
func (b *Bus) OnEvent(name Name, h Handler) {
	b.handlers[name] = append(b.handlers[name], h)
}

// AddListener registers every handler the listener declares.
func (b *Bus) AddListener(l Listener) {
	hs := l.Handlers()
	for name, h := range hs {
		b.OnEvent(name, h)
	}
	if len(hs) > 0 {
		b.log.Info("listener registered", "type", fmt.Sprintf("%T", l), "events", len(hs))
	}
}

// Emit constructs an Event and delivers it synchronously to every registered
// handler in registration order. The constructed event is returned.
func (b *Bus) Emit(name Name, data map[string]any) Event {
	ev := Event{Name: name, Data: data, Time: time.Now()}
	b.Dispatch(ev)
	return ev
}

// Dispatch delivers an already-constructed event, used by replay to re-emit
// recorded events with their original payloads.
func (b *Bus) Dispatch(ev Event) {
	for _, h := range b.handlers[ev.Name] {
		b.invoke(ev, h)
	}
}

func (b *Bus) invoke(ev Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			// One bad subscriber must not break the bus or the others.
			b.log.Error("event handler failed", "event", string(ev.Name), "panic", r)
		}
	}()
	h(ev)
}
