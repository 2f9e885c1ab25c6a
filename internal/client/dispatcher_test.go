package client

import (
	"testing"

	"github.com/alexrdz/retro-flow/internal/proto"
)

func TestUnsubscribeRemovesOnlyItsHandler(t *testing.T) {
	d := NewDispatcher()

	var first, second int
	sub := d.Subscribe(proto.EventUserJoined, func(Event) { first++ })
	d.Subscribe(proto.EventUserJoined, func(Event) { second++ })

	d.Dispatch(Event{Kind: proto.EventUserJoined, User: "bob"})
	if first != 1 || second != 1 {
		t.Fatalf("each handler must run once: first=%d second=%d", first, second)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	d.Dispatch(Event{Kind: proto.EventUserJoined, User: "carol"})
	if first != 1 || second != 2 {
		t.Fatalf("unexpected counts after unsubscribe: first=%d second=%d", first, second)
	}
	if n := d.Handlers(proto.EventUserJoined); n != 1 {
		t.Fatalf("expected 1 handler left, got %d", n)
	}
}

func TestDispatchRoutesByKind(t *testing.T) {
	d := NewDispatcher()

	var order []string
	d.Subscribe(proto.EventUserLeft, func(ev Event) { order = append(order, "left:"+ev.User) })
	d.Subscribe(proto.EventUserJoined, func(ev Event) { order = append(order, "joined-1:"+ev.User) })
	d.Subscribe(proto.EventUserJoined, func(ev Event) { order = append(order, "joined-2:"+ev.User) })

	d.Dispatch(Event{Kind: proto.EventUserJoined, User: "bob"})
	d.Dispatch(Event{Kind: proto.EventCardCreated})

	if len(order) != 2 || order[0] != "joined-1:bob" || order[1] != "joined-2:bob" {
		t.Fatalf("unexpected dispatch order: %v", order)
	}
}

func TestHandlerMayUnsubscribeDuringDispatch(t *testing.T) {
	d := NewDispatcher()

	calls := 0
	var sub *Subscription
	sub = d.Subscribe(proto.EventPresenceUpdate, func(Event) {
		calls++
		sub.Unsubscribe()
	})

	d.Dispatch(Event{Kind: proto.EventPresenceUpdate})
	d.Dispatch(Event{Kind: proto.EventPresenceUpdate})
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestFrameDecoding(t *testing.T) {
	tests := []struct {
		name  string
		frame frame
		check func(Event) bool
	}{
		{
			"presence",
			frame{Type: proto.OutboundTypeEvent, Event: proto.EventPresenceUpdate, Data: []byte(`{"online_users":["a","b"],"ready_users":["b"]}`)},
			func(ev Event) bool { return len(ev.OnlineUsers) == 2 && len(ev.ReadyUsers) == 1 },
		},
		{
			"ready",
			frame{Type: proto.OutboundTypeEvent, Event: proto.EventReadyStatusChanged, Data: []byte(`{"user":"a","ready":true,"ready_users":["a"]}`)},
			func(ev Event) bool { return ev.User == "a" && ev.Ready && len(ev.ReadyUsers) == 1 },
		},
		{
			"card",
			frame{Type: proto.OutboundTypeEvent, Event: proto.EventCardUpdated, Data: []byte(`{"card":{"id":3,"content":"x"}}`)},
			func(ev Event) bool { return ev.Card != nil && ev.Card.ID == 3 },
		},
		{
			"card deleted",
			frame{Type: proto.OutboundTypeEvent, Event: proto.EventCardDeleted, Data: []byte(`{"card_id":3}`)},
			func(ev Event) bool { return ev.CardID == 3 },
		},
		{
			"action item deleted",
			frame{Type: proto.OutboundTypeEvent, Event: proto.EventActionItemDeleted, Data: []byte(`{"action_item_id":8}`)},
			func(ev Event) bool { return ev.ActionItemID == 8 },
		},
		{
			"error",
			frame{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "rate_limited", Msg: "slow down"}},
			func(ev Event) bool { return ev.Kind == EventError && ev.Error.Code == "rate_limited" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := tt.frame.event()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !tt.check(ev) {
				t.Fatalf("unexpected event: %+v", ev)
			}
		})
	}

	if _, err := (frame{Type: proto.OutboundTypeEvent, Event: proto.EventUserJoined}).event(); err == nil {
		t.Fatal("expected error for missing data")
	}
}
