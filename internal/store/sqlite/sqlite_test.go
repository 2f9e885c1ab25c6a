package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/store"
)

func newTestStore(t *testing.T) (*SQLiteStore, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	s, err := New(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestSessionLifecycle(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSession(ctx, "Sprint 1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	clock.Advance(time.Hour)
	second, err := s.CreateSession(ctx, "Sprint 2")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", first.ID, second.ID)
	}

	got, err := s.GetSession(ctx, first.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Name != "Sprint 1" || !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("unexpected session: %+v", got)
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != second.ID {
		t.Fatalf("expected newest session first, got %+v", sessions)
	}

	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSessionRemovesBoard(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "Retro")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	card, err := s.CreateCard(ctx, models.NewCard{SessionID: session.ID, Content: "CI is fast", ColumnType: models.ColumnWentWell})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	item, err := s.CreateActionItem(ctx, models.NewActionItem{SessionID: session.ID, Title: "Write docs"})
	if err != nil {
		t.Fatalf("create action item: %v", err)
	}

	if err := s.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if _, err := s.GetCard(ctx, card.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected card to be gone, got %v", err)
	}
	if _, err := s.GetActionItem(ctx, item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected action item to be gone, got %v", err)
	}
	if err := s.DeleteSession(ctx, session.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCardCRUD(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "Retro")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	card, err := s.CreateCard(ctx, models.NewCard{
		SessionID:  session.ID,
		Content:    "Deploys broke twice",
		ColumnType: models.ColumnImprove,
		Position:   1,
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if card.ID == 0 || !card.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected created card: %+v", card)
	}
	if _, err := s.CreateCard(ctx, models.NewCard{SessionID: session.ID, Content: "Pairing", ColumnType: models.ColumnWentWell}); err != nil {
		t.Fatalf("create card: %v", err)
	}

	content := "Deploys broke once"
	column := models.ColumnActions
	updated, err := s.UpdateCard(ctx, card.ID, models.CardPatch{Content: &content, ColumnType: &column})
	if err != nil {
		t.Fatalf("update card: %v", err)
	}
	if updated.Content != content || updated.ColumnType != column || updated.Position != 1 {
		t.Fatalf("unexpected updated card: %+v", updated)
	}

	cards, err := s.ListCards(ctx, session.ID)
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}

	if err := s.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if err := s.DeleteCard(ctx, card.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateCard(ctx, card.ID, models.CardPatch{Content: &content}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestActionItemCRUD(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "Retro")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	item, err := s.CreateActionItem(ctx, models.NewActionItem{
		SessionID:  session.ID,
		Title:      "Add flaky test report",
		AssignedTo: "bob",
	})
	if err != nil {
		t.Fatalf("create action item: %v", err)
	}
	if item.Status != models.ActionItemPending {
		t.Fatalf("expected pending status, got %q", item.Status)
	}

	tests := []struct {
		name  string
		patch models.ActionItemPatch
		check func(*models.ActionItem) bool
	}{
		{
			name:  "status",
			patch: models.ActionItemPatch{Status: ptr(models.ActionItemInProgress)},
			check: func(it *models.ActionItem) bool { return it.Status == models.ActionItemInProgress },
		},
		{
			name:  "assignee cleared",
			patch: models.ActionItemPatch{AssignedTo: ptr("")},
			check: func(it *models.ActionItem) bool { return it.AssignedTo == "" && it.Title == "Add flaky test report" },
		},
		{
			name:  "description",
			patch: models.ActionItemPatch{Description: ptr("weekly")},
			check: func(it *models.ActionItem) bool {
				return it.Description == "weekly" && it.Status == models.ActionItemInProgress
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.UpdateActionItem(ctx, item.ID, tt.patch)
			if err != nil {
				t.Fatalf("update action item: %v", err)
			}
			if !tt.check(got) {
				t.Fatalf("unexpected action item: %+v", got)
			}
		})
	}

	items, err := s.ListActionItems(ctx, session.ID)
	if err != nil {
		t.Fatalf("list action items: %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("unexpected action items: %+v", items)
	}

	if err := s.DeleteActionItem(ctx, item.ID); err != nil {
		t.Fatalf("delete action item: %v", err)
	}
	if _, err := s.GetActionItem(ctx, item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewWithSetupSkipsDefaultSchema(t *testing.T) {
	s, err := NewWithSetup(":memory:", nil, func(db *sql.DB) error {
		_, err := db.Exec(`CREATE TABLE sessions (id TEXT PRIMARY KEY, name TEXT NOT NULL, created_at DATETIME NOT NULL)`)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := s.CreateSession(context.Background(), "only sessions"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := s.ListCards(context.Background(), "x"); err == nil {
		t.Fatal("expected error without cards table")
	}
}

func ptr[T any](v T) *T { return &v }
