package core

import "github.com/alexrdz/retro-flow/internal/metrics"

// Room groups the connections bound to one session.
type Room struct {
	Session string
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(session string) *Room {
	return &Room{
		Session: session,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Broadcast sends an event to every client in the room except the given one.
// A nil except includes everybody.
func (r *Room) Broadcast(event *Event, except *Client) {
	for client := range r.clients {
		if client == except {
			continue
		}
		deliver(client, event)
	}
}

// Len returns the number of clients in the room.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

// deliver queues event for c without blocking.
func deliver(c *Client, event *Event) {
	select {
	case c.Events <- event:
		metrics.EventSent(event.Kind.String())
	default:
		// Drop if slow consumer.
		metrics.EventDropped(event.Kind.String())
	}
}
