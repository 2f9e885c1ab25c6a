package core

import "github.com/alexrdz/retro-flow/internal/models"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin binds the connection to a session under a username.
	CommandJoin CommandKind = iota
	// CommandLeave unbinds the connection from its session.
	CommandLeave
	// CommandMarkReady sets the ready flag of the bound user.
	CommandMarkReady
	// CommandCardCreated relays a persisted card to the session.
	CommandCardCreated
	// CommandCardUpdated relays an updated card to the session.
	CommandCardUpdated
	// CommandCardDeleted relays a card removal to the session.
	CommandCardDeleted
	// CommandActionItemCreated relays a persisted action item to the session.
	CommandActionItemCreated
	// CommandActionItemUpdated relays an updated action item to the session.
	CommandActionItemUpdated
	// CommandActionItemDeleted relays an action item removal to the session.
	CommandActionItemDeleted
)

var commandNames = [...]string{
	CommandJoin:              "join",
	CommandLeave:             "leave",
	CommandMarkReady:         "mark_ready",
	CommandCardCreated:       "card_created",
	CommandCardUpdated:       "card_updated",
	CommandCardDeleted:       "card_deleted",
	CommandActionItemCreated: "action_item_created",
	CommandActionItemUpdated: "action_item_updated",
	CommandActionItemDeleted: "action_item_deleted",
}

func (k CommandKind) String() string {
	if k >= 0 && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return "unknown"
}

// Command represents an action requested by a client.
type Command struct {
	Kind         CommandKind
	Session      string
	User         string
	Ready        bool
	Card         *models.Card
	CardID       int64
	ActionItem   *models.ActionItem
	ActionItemID int64
}
