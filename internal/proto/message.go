package proto

import (
	"encoding/json"

	"github.com/alexrdz/retro-flow/internal/models"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin              = "join"
	InboundTypeLeave             = "leave"
	InboundTypeMarkReady         = "mark_ready"
	InboundTypeCardCreated       = "card_created"
	InboundTypeCardUpdated       = "card_updated"
	InboundTypeCardDeleted       = "card_deleted"
	InboundTypeActionItemCreated = "action_item_created"
	InboundTypeActionItemUpdated = "action_item_updated"
	InboundTypeActionItemDeleted = "action_item_deleted"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	EventPresenceUpdate     = "presence_update"
	EventUserJoined         = "user_joined"
	EventUserLeft           = "user_left"
	EventReadyStatusChanged = "ready_status_changed"
	EventCardCreated        = "card_created"
	EventCardUpdated        = "card_updated"
	EventCardDeleted        = "card_deleted"
	EventActionItemCreated  = "action_item_created"
	EventActionItemUpdated  = "action_item_updated"
	EventActionItemDeleted  = "action_item_deleted"
)

// JoinData binds the connection to a session under a username.
type JoinData struct {
	Session string `json:"session"`
	User    string `json:"user"`
}

// LeaveData unbinds the connection from a session.
type LeaveData struct {
	Session string `json:"session"`
}

// MarkReadyData sets the ready flag for the joined user.
type MarkReadyData struct {
	Session string `json:"session"`
	User    string `json:"user"`
	Ready   bool   `json:"ready"`
}

// CardData carries a created or updated card.
type CardData struct {
	Session string       `json:"session"`
	Card    *models.Card `json:"card"`
}

// CardDeletedData carries the id of a removed card.
type CardDeletedData struct {
	Session string `json:"session,omitempty"`
	CardID  int64  `json:"card_id"`
}

// ActionItemData carries a created or updated action item.
type ActionItemData struct {
	Session    string             `json:"session"`
	ActionItem *models.ActionItem `json:"action_item"`
}

// ActionItemDeletedData carries the id of a removed action item.
type ActionItemDeletedData struct {
	Session      string `json:"session,omitempty"`
	ActionItemID int64  `json:"action_item_id"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventPresence is the presence snapshot sent to a joining client.
type EventPresence struct {
	OnlineUsers []string `json:"online_users"`
	ReadyUsers  []string `json:"ready_users"`
}

// EventUser notifies that a user joined or left a session.
type EventUser struct {
	User string `json:"user"`
}

// EventReady carries the full ready set after a change.
type EventReady struct {
	User       string   `json:"user"`
	Ready      bool     `json:"ready"`
	ReadyUsers []string `json:"ready_users"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
