package core

import "github.com/alexrdz/retro-flow/internal/models"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventPresenceUpdate delivers the presence snapshot to a joining client.
	EventPresenceUpdate EventKind = iota
	// EventUserJoined notifies peers that a user came online.
	EventUserJoined
	// EventUserLeft notifies peers that a user went offline.
	EventUserLeft
	// EventReadyStatusChanged carries the full ready set after a change.
	EventReadyStatusChanged
	// EventCardCreated relays a new card.
	EventCardCreated
	// EventCardUpdated relays a changed card.
	EventCardUpdated
	// EventCardDeleted relays a removed card id.
	EventCardDeleted
	// EventActionItemCreated relays a new action item.
	EventActionItemCreated
	// EventActionItemUpdated relays a changed action item.
	EventActionItemUpdated
	// EventActionItemDeleted relays a removed action item id.
	EventActionItemDeleted
	// EventError notifies a client about a rejected command.
	EventError
)

var eventNames = [...]string{
	EventPresenceUpdate:     "presence_update",
	EventUserJoined:         "user_joined",
	EventUserLeft:           "user_left",
	EventReadyStatusChanged: "ready_status_changed",
	EventCardCreated:        "card_created",
	EventCardUpdated:        "card_updated",
	EventCardDeleted:        "card_deleted",
	EventActionItemCreated:  "action_item_created",
	EventActionItemUpdated:  "action_item_updated",
	EventActionItemDeleted:  "action_item_deleted",
	EventError:              "error",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is sent to clients to describe what happened in a session.
// Events are shared between recipients and must not be modified after
// they are handed to a room.
type Event struct {
	Kind         EventKind
	Session      string
	User         string
	Ready        bool
	OnlineUsers  []string
	ReadyUsers   []string
	Card         *models.Card
	CardID       int64
	ActionItem   *models.ActionItem
	ActionItemID int64
	Error        *CoreError
}
