package models

import "time"

// ActionItemStatus tracks progress of an action item.
type ActionItemStatus string

const (
	ActionItemPending    ActionItemStatus = "pending"
	ActionItemInProgress ActionItemStatus = "in_progress"
	ActionItemCompleted  ActionItemStatus = "completed"
)

// Valid reports whether s is a known status.
func (s ActionItemStatus) Valid() bool {
	switch s {
	case ActionItemPending, ActionItemInProgress, ActionItemCompleted:
		return true
	}
	return false
}

// ActionItem is a follow-up task agreed on during a retrospective.
type ActionItem struct {
	ID          int64            `json:"id"`
	SessionID   string           `json:"sessionId"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	AssignedTo  string           `json:"assignedTo,omitempty"`
	Status      ActionItemStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NewActionItem carries the fields a client supplies when creating an action item.
type NewActionItem struct {
	SessionID   string `json:"sessionId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssignedTo  string `json:"assignedTo,omitempty"`
}

// ActionItemPatch lists the action item fields to change.
type ActionItemPatch struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	AssignedTo  *string           `json:"assignedTo,omitempty"`
	Status      *ActionItemStatus `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ActionItemPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.AssignedTo == nil && p.Status == nil
}
