package models

import "time"

// ColumnType identifies one of the fixed board columns.
type ColumnType string

const (
	ColumnWentWell ColumnType = "went_well"
	ColumnImprove  ColumnType = "improve"
	ColumnActions  ColumnType = "actions"
)

// Valid reports whether c is one of the known columns.
func (c ColumnType) Valid() bool {
	switch c {
	case ColumnWentWell, ColumnImprove, ColumnActions:
		return true
	}
	return false
}

// Title returns the human-readable column heading.
func (c ColumnType) Title() string {
	switch c {
	case ColumnWentWell:
		return "What Went Well"
	case ColumnImprove:
		return "What Could Improve"
	case ColumnActions:
		return "Action Items"
	default:
		return string(c)
	}
}

// Session is a single retrospective board.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Card is a sticky note placed in a column of a session.
type Card struct {
	ID         int64      `json:"id"`
	SessionID  string     `json:"sessionId"`
	Content    string     `json:"content"`
	ColumnType ColumnType `json:"columnType"`
	Position   int        `json:"position"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// NewCard carries the fields a client supplies when creating a card.
type NewCard struct {
	SessionID  string     `json:"sessionId"`
	Content    string     `json:"content"`
	ColumnType ColumnType `json:"columnType"`
	Position   int        `json:"position"`
}

// CardPatch lists the card fields to change. Nil fields are left untouched.
type CardPatch struct {
	Content    *string     `json:"content,omitempty"`
	ColumnType *ColumnType `json:"columnType,omitempty"`
	Position   *int        `json:"position,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p CardPatch) Empty() bool {
	return p.Content == nil && p.ColumnType == nil && p.Position == nil
}

// SessionData is the full read model of a session fetched on load.
type SessionData struct {
	Session
	Cards       []Card       `json:"cards"`
	ActionItems []ActionItem `json:"actionItems"`
}
