package http

import (
	"encoding/json"
	"testing"

	"github.com/alexrdz/retro-flow/internal/core"
	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		kind    core.CommandKind
		errCode string
	}{
		{"join", `{"type":"join","data":{"session":"S1","user":"alice"}}`, core.CommandJoin, ""},
		{"join missing user", `{"type":"join","data":{"session":"S1"}}`, 0, core.ErrCodeBadRequest},
		{"leave without data", `{"type":"leave"}`, core.CommandLeave, ""},
		{"mark ready", `{"type":"mark_ready","data":{"session":"S1","ready":true}}`, core.CommandMarkReady, ""},
		{"card created", `{"type":"card_created","data":{"session":"S1","card":{"id":3}}}`, core.CommandCardCreated, ""},
		{"card without body", `{"type":"card_updated","data":{"session":"S1"}}`, 0, core.ErrCodeBadRequest},
		{"card deleted", `{"type":"card_deleted","data":{"session":"S1","card_id":3}}`, core.CommandCardDeleted, ""},
		{"action item updated", `{"type":"action_item_updated","data":{"session":"S1","action_item":{"id":4}}}`, core.CommandActionItemUpdated, ""},
		{"action item deleted", `{"type":"action_item_deleted","data":{"session":"S1","action_item_id":4}}`, core.CommandActionItemDeleted, ""},
		{"malformed data", `{"type":"join","data":"alice"}`, 0, core.ErrCodeInvalidMessage},
		{"missing data", `{"type":"card_deleted"}`, 0, core.ErrCodeInvalidMessage},
		{"unknown type", `{"type":"chat","data":{}}`, 0, core.ErrCodeInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inbound proto.Inbound
			if err := json.Unmarshal([]byte(tt.inbound), &inbound); err != nil {
				t.Fatalf("bad fixture: %v", err)
			}
			cmd, perr := inboundToCommand(inbound)
			if tt.errCode != "" {
				if perr == nil || perr.Code != tt.errCode {
					t.Fatalf("expected %s, got cmd=%+v err=%+v", tt.errCode, cmd, perr)
				}
				return
			}
			if perr != nil {
				t.Fatalf("unexpected error: %+v", perr)
			}
			if cmd.Kind != tt.kind {
				t.Fatalf("expected %s, got %s", tt.kind, cmd.Kind)
			}
		})
	}
}

func TestOutboundFromEvent(t *testing.T) {
	out := outboundFromEvent(&core.Event{
		Kind:       core.EventReadyStatusChanged,
		Session:    "S1",
		User:       "alice",
		Ready:      true,
		ReadyUsers: []string{"alice"},
	})
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"event","event":"ready_status_changed","data":{"user":"alice","ready":true,"ready_users":["alice"]}}`
	if string(raw) != want {
		t.Fatalf("got %s\nwant %s", raw, want)
	}

	out = outboundFromEvent(&core.Event{Kind: core.EventCardUpdated, Session: "S1", Card: &models.Card{ID: 5}})
	data, ok := out.Data.(proto.CardData)
	if !ok || out.Event != proto.EventCardUpdated || data.Card.ID != 5 {
		t.Fatalf("unexpected card outbound: %+v", out)
	}

	out = outboundFromEvent(&core.Event{Kind: core.EventError, Error: &core.CoreError{Code: core.ErrCodeNotInSession, Message: "not joined"}})
	if out.Type != proto.OutboundTypeError || out.Error.Code != core.ErrCodeNotInSession || out.Error.Msg != "not joined" {
		t.Fatalf("unexpected error outbound: %+v", out)
	}
}
