package store

import (
	"context"
	"errors"

	"github.com/alexrdz/retro-flow/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// SessionStore handles retrospective session persistence.
type SessionStore interface {
	// CreateSession creates a new session with a generated id.
	CreateSession(ctx context.Context, name string) (*models.Session, error)

	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// ListSessions lists sessions, newest first.
	ListSessions(ctx context.Context) ([]*models.Session, error)

	// DeleteSession removes a session together with its cards and action items.
	DeleteSession(ctx context.Context, id string) error
}

// CardStore handles card persistence.
type CardStore interface {
	// CreateCard inserts a card and returns it with id and timestamp set.
	CreateCard(ctx context.Context, card models.NewCard) (*models.Card, error)

	GetCard(ctx context.Context, id int64) (*models.Card, error)

	// UpdateCard applies the non-nil patch fields and returns the updated card.
	UpdateCard(ctx context.Context, id int64, patch models.CardPatch) (*models.Card, error)

	DeleteCard(ctx context.Context, id int64) error

	// ListCards lists the cards of a session ordered by column and position.
	ListCards(ctx context.Context, sessionID string) ([]*models.Card, error)
}

// ActionItemStore handles action item persistence.
type ActionItemStore interface {
	// CreateActionItem inserts an action item in pending status.
	CreateActionItem(ctx context.Context, item models.NewActionItem) (*models.ActionItem, error)

	GetActionItem(ctx context.Context, id int64) (*models.ActionItem, error)

	// UpdateActionItem applies the non-nil patch fields and returns the updated item.
	UpdateActionItem(ctx context.Context, id int64, patch models.ActionItemPatch) (*models.ActionItem, error)

	DeleteActionItem(ctx context.Context, id int64) error

	// ListActionItems lists the action items of a session, oldest first.
	ListActionItems(ctx context.Context, sessionID string) ([]*models.ActionItem, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	SessionStore
	CardStore
	ActionItemStore

	// Close closes the underlying database connection.
	Close() error
}
