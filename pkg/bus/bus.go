// Package bus fans agent events out to in-process subscribers such as the CLI
// renderer and the approval prompt.
package bus

import (
	"sync"

	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/entrhq/tabpilot/pkg/types"
)

var logger *logging.Logger

func init() {
	logger = logging.NewLogger("bus")
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Handler func(event *types.AgentEvent)

type subscription struct {
	id      int
	handler Handler
	filter  map[types.AgentEventType]bool
}

// Bus is a fan-out event bus. The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h for every event. The returned function removes it.
func (b *Bus) Subscribe(h Handler) func() {
	return b.subscribe(h, nil)
}

// SubscribeTypes registers h for the listed event types only.
func (b *Bus) SubscribeTypes(h Handler, eventTypes ...types.AgentEventType) func() {
	filter := make(map[types.AgentEventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		filter[t] = true
	}
	return b.subscribe(h, filter)
}

func (b *Bus) subscribe(h Handler, filter map[types.AgentEventType]bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h, filter: filter})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every matching subscriber. A panicking handler is
// logged and does not stop delivery to the others.
func (b *Bus) Publish(event *types.AgentEvent) {
	if event == nil {
		return
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.filter != nil && !s.filter[event.Type] {
			continue
		}
		deliver(s.handler, event)
	}
}

func deliver(h Handler, event *types.AgentEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Subscriber panicked on %s event: %v", event.Type, r)
		}
	}()
	h(event)
}

// SubscribeChan returns a channel receiving every event. Events are dropped
// when the channel is full so a slow reader never blocks the agent.
func (b *Bus) SubscribeChan(size int) (<-chan *types.AgentEvent, func()) {
	ch := make(chan *types.AgentEvent, size)
	var mu sync.Mutex
	closed := false

	unsubscribe := b.Subscribe(func(event *types.AgentEvent) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- event:
		default:
			logger.Warnf("Dropping %s event: subscriber channel full", event.Type)
		}
	})

	return ch, func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}

// Emitter returns Publish as a plain function for components that take an emitter.
func (b *Bus) Emitter() func(*types.AgentEvent) {
	return b.Publish
}
