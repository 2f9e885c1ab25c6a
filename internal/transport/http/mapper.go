package http

import (
	"encoding/json"

	"github.com/alexrdz/retro-flow/internal/core"
	"github.com/alexrdz/retro-flow/internal/proto"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func invalidMessage(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: msg}
}

func decodeData(data json.RawMessage, v any) *proto.Error {
	if len(data) == 0 {
		return invalidMessage("missing data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return invalidMessage("malformed data")
	}
	return nil
}

// inboundToCommand maps a client envelope to a hub command. A non-nil
// proto.Error is reported back to the client and the message is dropped.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if perr := decodeData(inbound.Data, &join); perr != nil {
			return nil, perr
		}
		if join.Session == "" || join.User == "" {
			return nil, badRequest("session and user are required")
		}
		return &core.Command{Kind: core.CommandJoin, Session: join.Session, User: join.User}, nil
	case proto.InboundTypeLeave:
		// An empty leave means the currently joined session.
		var leave proto.LeaveData
		if len(inbound.Data) > 0 {
			if perr := decodeData(inbound.Data, &leave); perr != nil {
				return nil, perr
			}
		}
		return &core.Command{Kind: core.CommandLeave, Session: leave.Session}, nil
	case proto.InboundTypeMarkReady:
		var ready proto.MarkReadyData
		if perr := decodeData(inbound.Data, &ready); perr != nil {
			return nil, perr
		}
		if ready.Session == "" {
			return nil, badRequest("session is required")
		}
		return &core.Command{
			Kind:    core.CommandMarkReady,
			Session: ready.Session,
			User:    ready.User,
			Ready:   ready.Ready,
		}, nil
	case proto.InboundTypeCardCreated, proto.InboundTypeCardUpdated:
		var data proto.CardData
		if perr := decodeData(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		if data.Card == nil {
			return nil, badRequest("card is required")
		}
		kind := core.CommandCardCreated
		if inbound.Type == proto.InboundTypeCardUpdated {
			kind = core.CommandCardUpdated
		}
		return &core.Command{Kind: kind, Session: data.Session, Card: data.Card}, nil
	case proto.InboundTypeCardDeleted:
		var data proto.CardDeletedData
		if perr := decodeData(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandCardDeleted, Session: data.Session, CardID: data.CardID}, nil
	case proto.InboundTypeActionItemCreated, proto.InboundTypeActionItemUpdated:
		var data proto.ActionItemData
		if perr := decodeData(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		if data.ActionItem == nil {
			return nil, badRequest("action_item is required")
		}
		kind := core.CommandActionItemCreated
		if inbound.Type == proto.InboundTypeActionItemUpdated {
			kind = core.CommandActionItemUpdated
		}
		return &core.Command{Kind: kind, Session: data.Session, ActionItem: data.ActionItem}, nil
	case proto.InboundTypeActionItemDeleted:
		var data proto.ActionItemDeletedData
		if perr := decodeData(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind:         core.CommandActionItemDeleted,
			Session:      data.Session,
			ActionItemID: data.ActionItemID,
		}, nil
	default:
		return nil, invalidMessage("unknown message type")
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventPresenceUpdate:
		return eventOutbound(proto.EventPresenceUpdate, proto.EventPresence{
			OnlineUsers: event.OnlineUsers,
			ReadyUsers:  event.ReadyUsers,
		})
	case core.EventUserJoined:
		return eventOutbound(proto.EventUserJoined, proto.EventUser{User: event.User})
	case core.EventUserLeft:
		return eventOutbound(proto.EventUserLeft, proto.EventUser{User: event.User})
	case core.EventReadyStatusChanged:
		return eventOutbound(proto.EventReadyStatusChanged, proto.EventReady{
			User:       event.User,
			Ready:      event.Ready,
			ReadyUsers: event.ReadyUsers,
		})
	case core.EventCardCreated:
		return eventOutbound(proto.EventCardCreated, proto.CardData{Session: event.Session, Card: event.Card})
	case core.EventCardUpdated:
		return eventOutbound(proto.EventCardUpdated, proto.CardData{Session: event.Session, Card: event.Card})
	case core.EventCardDeleted:
		return eventOutbound(proto.EventCardDeleted, proto.CardDeletedData{Session: event.Session, CardID: event.CardID})
	case core.EventActionItemCreated:
		return eventOutbound(proto.EventActionItemCreated, proto.ActionItemData{Session: event.Session, ActionItem: event.ActionItem})
	case core.EventActionItemUpdated:
		return eventOutbound(proto.EventActionItemUpdated, proto.ActionItemData{Session: event.Session, ActionItem: event.ActionItem})
	case core.EventActionItemDeleted:
		return eventOutbound(proto.EventActionItemDeleted, proto.ActionItemDeletedData{
			Session:      event.Session,
			ActionItemID: event.ActionItemID,
		})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}
