package client

import (
	"slices"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/proto"
)

// Attach subscribes the board to events delivered through d.
func (b *Board) Attach(d *Dispatcher) {
	handlers := map[string]Handler{
		proto.EventCardCreated:        b.onCardCreated,
		proto.EventCardUpdated:        b.onCardUpdated,
		proto.EventCardDeleted:        b.onCardDeleted,
		proto.EventActionItemCreated:  b.onActionItemCreated,
		proto.EventActionItemUpdated:  b.onActionItemUpdated,
		proto.EventActionItemDeleted:  b.onActionItemDeleted,
		proto.EventPresenceUpdate:     b.onPresenceUpdate,
		proto.EventReadyStatusChanged: b.onReadyStatusChanged,
		proto.EventUserJoined:         b.onUserJoined,
		proto.EventUserLeft:           b.onUserLeft,
		EventError:                    b.onError,
	}

	subs := make([]*Subscription, 0, len(handlers))
	for kind, h := range handlers {
		subs = append(subs, d.Subscribe(kind, h))
	}

	b.mu.Lock()
	b.subs = append(b.subs, subs...)
	b.mu.Unlock()
}

// Detach removes every subscription made by Attach.
func (b *Board) Detach() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (b *Board) foreign(sessionID string) bool {
	return sessionID != "" && sessionID != b.sessionID
}

func (b *Board) onCardCreated(ev Event) {
	if ev.Card == nil || b.foreign(ev.Card.SessionID) {
		return
	}
	b.update(func() bool {
		if slices.ContainsFunc(b.cards, func(c models.Card) bool { return c.ID == ev.Card.ID }) {
			return false
		}
		b.cards = append(b.cards, *ev.Card)
		return true
	})
}

func (b *Board) onCardUpdated(ev Event) {
	if ev.Card == nil || b.foreign(ev.Card.SessionID) {
		return
	}
	b.update(func() bool {
		i := slices.IndexFunc(b.cards, func(c models.Card) bool { return c.ID == ev.Card.ID })
		if i < 0 {
			return false
		}
		b.cards[i] = *ev.Card
		return true
	})
}

func (b *Board) onCardDeleted(ev Event) {
	b.update(func() bool {
		n := len(b.cards)
		b.cards = slices.DeleteFunc(b.cards, func(c models.Card) bool { return c.ID == ev.CardID })
		return len(b.cards) != n
	})
}

func (b *Board) onActionItemCreated(ev Event) {
	if ev.ActionItem == nil || b.foreign(ev.ActionItem.SessionID) {
		return
	}
	b.update(func() bool {
		if slices.ContainsFunc(b.actionItems, func(a models.ActionItem) bool { return a.ID == ev.ActionItem.ID }) {
			return false
		}
		b.actionItems = append(b.actionItems, *ev.ActionItem)
		return true
	})
}

func (b *Board) onActionItemUpdated(ev Event) {
	if ev.ActionItem == nil || b.foreign(ev.ActionItem.SessionID) {
		return
	}
	b.update(func() bool {
		i := slices.IndexFunc(b.actionItems, func(a models.ActionItem) bool { return a.ID == ev.ActionItem.ID })
		if i < 0 {
			return false
		}
		b.actionItems[i] = *ev.ActionItem
		return true
	})
}

func (b *Board) onActionItemDeleted(ev Event) {
	b.update(func() bool {
		n := len(b.actionItems)
		b.actionItems = slices.DeleteFunc(b.actionItems, func(a models.ActionItem) bool { return a.ID == ev.ActionItemID })
		return len(b.actionItems) != n
	})
}

// Presence lists are replaced wholesale, never merged.
func (b *Board) onPresenceUpdate(ev Event) {
	b.update(func() bool {
		b.online = slices.Clone(ev.OnlineUsers)
		b.ready = slices.Clone(ev.ReadyUsers)
		b.isReady = slices.Contains(b.ready, b.username)
		return true
	})
}

func (b *Board) onReadyStatusChanged(ev Event) {
	b.update(func() bool {
		b.ready = slices.Clone(ev.ReadyUsers)
		b.isReady = slices.Contains(b.ready, b.username)
		return true
	})
}

func (b *Board) onUserJoined(ev Event) {
	b.update(func() bool {
		if ev.User == "" || slices.Contains(b.online, ev.User) {
			return false
		}
		b.online = append(b.online, ev.User)
		return true
	})
}

func (b *Board) onUserLeft(ev Event) {
	b.update(func() bool {
		online, ready := len(b.online), len(b.ready)
		b.online = slices.DeleteFunc(b.online, func(u string) bool { return u == ev.User })
		b.ready = slices.DeleteFunc(b.ready, func(u string) bool { return u == ev.User })
		if ev.User == b.username {
			b.isReady = false
		}
		return len(b.online) != online || len(b.ready) != ready
	})
}

func (b *Board) onError(ev Event) {
	if ev.Error == nil {
		return
	}
	b.log.Warn().Str("code", ev.Error.Code).Str("msg", ev.Error.Msg).Msg("server rejected message")
}
