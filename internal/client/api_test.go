package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/config"
	"github.com/alexrdz/retro-flow/internal/core"
	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/store/sqlite"
	transporthttp "github.com/alexrdz/retro-flow/internal/transport/http"
)

// startServer runs the full HTTP stack against an in-memory database.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	hub := core.NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.AllowedOrigins = nil
	cfg.PingInterval = 0
	server := transporthttp.NewServer(hub, st, &cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestAPIClientRoundTrip(t *testing.T) {
	ts := startServer(t)
	api := NewAPIClient(ts.URL + "/api/")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := api.CreateSession(ctx, "Sprint 7")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	card, err := api.CreateCard(ctx, models.NewCard{SessionID: session.ID, Content: "demo went well", ColumnType: models.ColumnWentWell})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	content := "demo went really well"
	updated, err := api.UpdateCard(ctx, card.ID, models.CardPatch{Content: &content})
	if err != nil || updated.Content != content {
		t.Fatalf("update card: %+v %v", updated, err)
	}

	item, err := api.CreateActionItem(ctx, models.NewActionItem{SessionID: session.ID, Title: "write notes"})
	if err != nil {
		t.Fatalf("create action item: %v", err)
	}
	status := models.ActionItemCompleted
	if _, err := api.UpdateActionItem(ctx, item.ID, models.ActionItemPatch{Status: &status}); err != nil {
		t.Fatalf("update action item: %v", err)
	}

	data, err := api.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(data.Cards) != 1 || len(data.ActionItems) != 1 || data.ActionItems[0].Status != models.ActionItemCompleted {
		t.Fatalf("unexpected session data: %+v", data)
	}

	sessions, err := api.ListSessions(ctx)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("list sessions: %+v %v", sessions, err)
	}

	if err := api.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if err := api.DeleteActionItem(ctx, item.ID); err != nil {
		t.Fatalf("delete action item: %v", err)
	}

	err = api.DeleteCard(ctx, card.ID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "card not found" {
		t.Fatalf("expected card not found, got %v", err)
	}
}

func TestAPIClientErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		status      int
		body        string
		want        string
	}{
		{"json error", "application/json", http.StatusBadRequest, `{"error":"content is required"}`, "content is required"},
		{"json message", "application/json; charset=utf-8", http.StatusConflict, `{"message":"already exists"}`, "already exists"},
		{"json without fields", "application/json", http.StatusInternalServerError, `{}`, "Unknown error"},
		{"plain text", "text/plain", http.StatusBadGateway, "upstream unavailable\n", "upstream unavailable"},
		{"empty body", "", http.StatusServiceUnavailable, "", "HTTP 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			err := NewAPIClient(ts.URL).DeleteCard(context.Background(), 1)
			if err == nil || err.Error() != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestBoardRemoveCardSurfacesServerError(t *testing.T) {
	ts := startServer(t)
	api := NewAPIClient(ts.URL + "/api")
	ctx := context.Background()

	session, err := api.CreateSession(ctx, "Retro")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	b := NewBoard(session.ID, "alice", api, &fakeEmitter{}, nil)
	if err := b.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := b.RemoveCard(ctx, 42); err == nil {
		t.Fatal("expected error for unknown card")
	}
	if got := b.OperationError(); !strings.HasPrefix(got, "Failed to remove card: ") || !strings.HasSuffix(got, "card not found") {
		t.Fatalf("unexpected operation error: %q", got)
	}
}
