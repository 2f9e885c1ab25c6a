package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/proto"
)

// Socket is a realtime connection to the server. It emits board messages and
// feeds incoming frames to a Dispatcher.
type Socket struct {
	conn *websocket.Conn
	log  *zerolog.Logger
}

var _ Emitter = (*Socket)(nil)

// Dial connects to the websocket endpoint at wsURL, e.g. ws://localhost:8080/ws.
func Dial(ctx context.Context, wsURL string, logger *zerolog.Logger) (*Socket, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Socket{conn: conn, log: logger}, nil
}

// Emit sends a message of msgType with data as its payload.
func (s *Socket) Emit(ctx context.Context, msgType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	return wsjson.Write(ctx, s.conn, proto.Inbound{Type: msgType, Data: payload})
}

// Run reads frames and dispatches them until the connection closes or ctx is done.
// A normal closure returns nil.
func (s *Socket) Run(ctx context.Context, d *Dispatcher) error {
	for {
		var msg frame
		if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		ev, err := msg.event()
		if err != nil {
			s.log.Warn().Err(err).Str("event", msg.Event).Msg("dropping undecodable frame")
			continue
		}
		d.Dispatch(ev)
	}
}

// Close performs a normal websocket closure.
func (s *Socket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "bye")
}

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (f frame) event() (Event, error) {
	if f.Type == proto.OutboundTypeError {
		return Event{Kind: EventError, Error: f.Error}, nil
	}

	ev := Event{Kind: f.Event}
	switch f.Event {
	case proto.EventPresenceUpdate:
		var d proto.EventPresence
		if err := f.decode(&d); err != nil {
			return ev, err
		}
		ev.OnlineUsers, ev.ReadyUsers = d.OnlineUsers, d.ReadyUsers
	case proto.EventUserJoined, proto.EventUserLeft:
		var d proto.EventUser
		if err := f.decode(&d); err != nil {
			return ev, err
		}
		ev.User = d.User
	case proto.EventReadyStatusChanged:
		var d proto.EventReady
		if err := f.decode(&d); err != nil {
			return ev, err
		}
		ev.User, ev.Ready, ev.ReadyUsers = d.User, d.Ready, d.ReadyUsers
	case proto.EventCardCreated, proto.EventCardUpdated:
		var d proto.CardData
		if err := f.decode(&d); err != nil {
			return ev, err
		}
		ev.Card = d.Card
	case proto.EventCardDeleted:
		var d proto.CardDeletedData
		if err := f.decode(&d); err != nil {
			return ev, err
		}
		ev.CardID = d.CardID
	case proto.EventActionItemCreated, proto.EventActionItemUpdated:
		var d proto.ActionItemData
		if err := f.decode(&d); err != nil {
			return ev, err
		}
		ev.ActionItem = d.ActionItem
	case proto.EventActionItemDeleted:
		var d proto.ActionItemDeletedData
		if err := f.decode(&d); err != nil {
			return ev, err
		}
		ev.ActionItemID = d.ActionItemID
	}
	return ev, nil
}

func (f frame) decode(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s: missing data", f.Event)
	}
	return json.Unmarshal(f.Data, v)
}
