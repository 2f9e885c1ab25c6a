package http

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/alexrdz/retro-flow/internal/models"
)

func TestSessionEndpoints(t *testing.T) {
	env := startTestServer(t, testConfig())

	resp := env.do(t, http.MethodPost, "/api/sessions", `{"name":"  Sprint 42  "}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	session := decodeBody[models.Session](t, resp)
	if session.ID == "" || session.Name != "Sprint 42" {
		t.Fatalf("unexpected session: %+v", session)
	}

	resp = env.do(t, http.MethodPost, "/api/sessions", `{"name":"   "}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodGet, "/api/sessions", "")
	list := decodeBody[SessionListResponse](t, resp)
	if len(list.Sessions) != 1 || list.Sessions[0].ID != session.ID {
		t.Fatalf("unexpected session list: %+v", list)
	}

	env.do(t, http.MethodPost, "/api/cards",
		fmt.Sprintf(`{"sessionId":%q,"content":"good vibes","columnType":"went_well"}`, session.ID))
	env.do(t, http.MethodPost, "/api/action-items",
		fmt.Sprintf(`{"sessionId":%q,"title":"book room"}`, session.ID))

	resp = env.do(t, http.MethodGet, "/api/sessions/"+session.ID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("get session: %d %s", resp.Code, resp.Body.String())
	}
	data := decodeBody[models.SessionData](t, resp)
	if data.ID != session.ID || len(data.Cards) != 1 || len(data.ActionItems) != 1 {
		t.Fatalf("unexpected session data: %+v", data)
	}

	resp = env.do(t, http.MethodDelete, "/api/sessions/"+session.ID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("delete session: %d", resp.Code)
	}
	resp = env.do(t, http.MethodGet, "/api/sessions/"+session.ID, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
	if body := decodeBody[ErrorResponse](t, resp); body.Error != "session not found" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestCardEndpoints(t *testing.T) {
	env := startTestServer(t, testConfig())

	session := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", `{"name":"Retro"}`))

	resp := env.do(t, http.MethodPost, "/api/cards",
		fmt.Sprintf(`{"sessionId":%q,"content":"flaky CI","columnType":"improve","position":2}`, session.ID))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create card: %d %s", resp.Code, resp.Body.String())
	}
	card := decodeBody[models.Card](t, resp)
	if card.ID == 0 || card.ColumnType != models.ColumnImprove || card.Position != 2 {
		t.Fatalf("unexpected card: %+v", card)
	}

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/cards/%d", card.ID), `{"content":"less flaky CI"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("update card: %d %s", resp.Code, resp.Body.String())
	}
	updated := decodeBody[models.Card](t, resp)
	if updated.Content != "less flaky CI" || updated.ColumnType != models.ColumnImprove {
		t.Fatalf("unexpected updated card: %+v", updated)
	}

	resp = env.do(t, http.MethodGet, "/api/cards?sessionId="+session.ID, "")
	cards := decodeBody[[]models.Card](t, resp)
	if len(cards) != 1 || cards[0].Content != "less flaky CI" {
		t.Fatalf("unexpected cards: %+v", cards)
	}

	resp = env.do(t, http.MethodGet, "/api/cards?sessionId=unknown", "")
	if resp.Code != http.StatusOK || strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/cards/%d", card.ID), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("delete card: %d", resp.Code)
	}
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/cards/%d", card.ID), "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.Code)
	}
}

func TestCardValidation(t *testing.T) {
	env := startTestServer(t, testConfig())
	session := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", `{"name":"Retro"}`))
	long := strings.Repeat("x", 501)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		message string
	}{
		{"missing content", http.MethodPost, "/api/cards", fmt.Sprintf(`{"sessionId":%q,"columnType":"improve"}`, session.ID), http.StatusBadRequest, "content is required"},
		{"blank content", http.MethodPost, "/api/cards", fmt.Sprintf(`{"sessionId":%q,"content":"  ","columnType":"improve"}`, session.ID), http.StatusBadRequest, "content is required"},
		{"too long", http.MethodPost, "/api/cards", fmt.Sprintf(`{"sessionId":%q,"content":%q,"columnType":"improve"}`, session.ID, long), http.StatusBadRequest, "content must be at most 500 characters"},
		{"bad column", http.MethodPost, "/api/cards", fmt.Sprintf(`{"sessionId":%q,"content":"x","columnType":"later"}`, session.ID), http.StatusBadRequest, "columnType must be one of: went_well, improve, actions"},
		{"negative position", http.MethodPost, "/api/cards", fmt.Sprintf(`{"sessionId":%q,"content":"x","columnType":"improve","position":-1}`, session.ID), http.StatusBadRequest, "position must be at least 0"},
		{"unknown session", http.MethodPost, "/api/cards", `{"sessionId":"nope","content":"x","columnType":"improve"}`, http.StatusNotFound, "session not found"},
		{"missing session query", http.MethodGet, "/api/cards", "", http.StatusBadRequest, "sessionId is required"},
		{"empty patch", http.MethodPut, "/api/cards/1", `{}`, http.StatusBadRequest, "no fields provided to update"},
		{"bad id", http.MethodPut, "/api/cards/abc", `{"content":"x"}`, http.StatusBadRequest, "invalid id"},
		{"unknown card", http.MethodPut, "/api/cards/999", `{"content":"x"}`, http.StatusNotFound, "card not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
			if body := decodeBody[ErrorResponse](t, resp); body.Error != tt.message {
				t.Fatalf("expected %q, got %q", tt.message, body.Error)
			}
		})
	}
}

func TestActionItemEndpoints(t *testing.T) {
	env := startTestServer(t, testConfig())
	session := decodeBody[models.Session](t, env.do(t, http.MethodPost, "/api/sessions", `{"name":"Retro"}`))

	resp := env.do(t, http.MethodPost, "/api/action-items",
		fmt.Sprintf(`{"sessionId":%q,"title":"Fix the build","assignedTo":"dana"}`, session.ID))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create action item: %d %s", resp.Code, resp.Body.String())
	}
	item := decodeBody[models.ActionItem](t, resp)
	if item.Status != models.ActionItemPending || item.AssignedTo != "dana" {
		t.Fatalf("unexpected action item: %+v", item)
	}

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/action-items/%d", item.ID), `{"status":"completed"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("update action item: %d %s", resp.Code, resp.Body.String())
	}
	if updated := decodeBody[models.ActionItem](t, resp); updated.Status != models.ActionItemCompleted {
		t.Fatalf("unexpected status: %q", updated.Status)
	}

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/action-items/%d", item.ID), `{"status":"someday"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodGet, "/api/action-items?sessionId="+session.ID, "")
	if items := decodeBody[[]models.ActionItem](t, resp); len(items) != 1 {
		t.Fatalf("unexpected action items: %+v", items)
	}

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/action-items/%d", item.ID), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("delete action item: %d", resp.Code)
	}
	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/action-items/%d", item.ID), "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHealthAndNotFound(t *testing.T) {
	env := startTestServer(t, testConfig())

	resp := env.do(t, http.MethodGet, "/api/health", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("api health: %d", resp.Code)
	}
	if health := decodeBody[HealthResponse](t, resp); health.Status != "ok" || health.Timestamp.IsZero() {
		t.Fatalf("unexpected health: %+v", health)
	}

	resp = env.do(t, http.MethodGet, "/api/nothing-here", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "retro_ws_connections") {
		t.Fatalf("metrics endpoint missing gauges: %d", resp.Code)
	}
}

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"http://localhost:5173", "https://retro.example.com", "*.example.org"})
	want := []string{"localhost:5173", "retro.example.com", "*.example.org"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("originHosts = %v, want %v", got, want)
	}
	if originHosts([]string{"http://a", "*"}) != nil {
		t.Fatal("wildcard origin should disable the check")
	}
}
