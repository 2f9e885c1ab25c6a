package client

import (
	"sort"
	"sync"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/proto"
)

// EventError is the kind dispatched for protocol error frames.
const EventError = "error"

// Event is a decoded server frame. Only the fields relevant to Kind are set.
type Event struct {
	Kind string

	Card         *models.Card
	CardID       int64
	ActionItem   *models.ActionItem
	ActionItemID int64

	User        string
	Ready       bool
	OnlineUsers []string
	ReadyUsers  []string

	Error *proto.Error
}

// Handler consumes a single event.
type Handler func(Event)

// Subscription is a token returned by Subscribe and Watch.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe removes the handler this token was issued for. Repeated calls are no-ops.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Dispatcher routes incoming events to handlers registered per kind.
type Dispatcher struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]map[uint64]Handler)}
}

// Subscribe registers h for events of the given kind.
func (d *Dispatcher) Subscribe(kind string, h Handler) *Subscription {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	if d.handlers[kind] == nil {
		d.handlers[kind] = make(map[uint64]Handler)
	}
	d.handlers[kind][id] = h
	d.mu.Unlock()

	return newSubscription(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers[kind], id)
		if len(d.handlers[kind]) == 0 {
			delete(d.handlers, kind)
		}
	})
}

// Dispatch invokes every handler subscribed to ev.Kind once, in subscription order.
func (d *Dispatcher) Dispatch(ev Event) {
	d.mu.Lock()
	set := d.handlers[ev.Kind]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, set[id])
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Handlers reports how many handlers are subscribed to kind.
func (d *Dispatcher) Handlers(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers[kind])
}
