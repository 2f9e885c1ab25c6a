package client

import (
	"context"

	"github.com/alexrdz/retro-flow/internal/models"
)

// Persistence is the authoritative store behind a board.
type Persistence interface {
	GetSession(ctx context.Context, id string) (*models.SessionData, error)
	CreateCard(ctx context.Context, in models.NewCard) (*models.Card, error)
	UpdateCard(ctx context.Context, id int64, patch models.CardPatch) (*models.Card, error)
	DeleteCard(ctx context.Context, id int64) error
	CreateActionItem(ctx context.Context, in models.NewActionItem) (*models.ActionItem, error)
	UpdateActionItem(ctx context.Context, id int64, patch models.ActionItemPatch) (*models.ActionItem, error)
	DeleteActionItem(ctx context.Context, id int64) error
}

// Emitter sends realtime messages to the server.
type Emitter interface {
	Emit(ctx context.Context, msgType string, data any) error
}
