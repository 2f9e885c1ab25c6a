package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/proto"
)

// ErrMissingIdentity is returned when a board has no session id or username.
var ErrMissingIdentity = errors.New("session id and username are required")

// OperationError describes a failed user-visible operation.
type OperationError struct {
	Verb string
	Noun string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("Failed to %s %s: %v", e.Verb, e.Noun, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// State is a copy of the board read model handed to watchers.
type State struct {
	Session        models.Session
	Cards          []models.Card
	ActionItems    []models.ActionItem
	OnlineUsers    []string
	ReadyUsers     []string
	IsReady        bool
	OperationError string
}

// Board is the local read model of one session. It merges the initial fetch,
// optimistic local edits and events broadcast by peers.
type Board struct {
	sessionID string
	username  string
	store     Persistence
	emitter   Emitter
	log       *zerolog.Logger

	mu          sync.Mutex
	session     models.Session
	cards       []models.Card
	actionItems []models.ActionItem
	online      []string
	ready       []string
	isReady     bool
	opErr       string
	tempID      int64
	nextWatch   uint64
	watchers    map[uint64]func(State)
	subs        []*Subscription
}

// NewBoard creates an empty board for the session joined as username.
func NewBoard(sessionID, username string, store Persistence, emitter Emitter, logger *zerolog.Logger) *Board {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Board{
		sessionID: sessionID,
		username:  username,
		store:     store,
		emitter:   emitter,
		log:       logger,
		watchers:  make(map[uint64]func(State)),
	}
}

// SessionID returns the session this board tracks.
func (b *Board) SessionID() string { return b.sessionID }

// Username returns the local user's name.
func (b *Board) Username() string { return b.username }

// Load replaces the board content with a fresh fetch from the store.
func (b *Board) Load(ctx context.Context) error {
	if b.sessionID == "" {
		return b.fail("load", "session", ErrMissingIdentity)
	}
	data, err := b.store.GetSession(ctx, b.sessionID)
	if err != nil {
		return b.fail("load", "session", err)
	}
	b.update(func() bool {
		b.session = data.Session
		b.cards = slices.Clone(data.Cards)
		b.actionItems = slices.Clone(data.ActionItems)
		b.opErr = ""
		return true
	})
	return nil
}

// Join announces the local user to the session.
func (b *Board) Join(ctx context.Context) error {
	if err := b.requireIdentity("join", "session"); err != nil {
		return err
	}
	if err := b.emitter.Emit(ctx, proto.InboundTypeJoin, proto.JoinData{Session: b.sessionID, User: b.username}); err != nil {
		return b.fail("join", "session", err)
	}
	return nil
}

// Leave unbinds the connection from the session.
func (b *Board) Leave(ctx context.Context) error {
	return b.emitter.Emit(ctx, proto.InboundTypeLeave, proto.LeaveData{Session: b.sessionID})
}

// AddCard inserts a placeholder card, persists it and broadcasts the result.
func (b *Board) AddCard(ctx context.Context, content string, column models.ColumnType) (*models.Card, error) {
	if !column.Valid() {
		return nil, b.fail("add", "card", fmt.Errorf("unknown column %q", column))
	}
	var temp models.Card
	restore, err := b.optimistic("add", "card", func() func() {
		prev := slices.Clone(b.cards)
		b.tempID--
		temp = models.Card{
			ID:         b.tempID,
			SessionID:  b.sessionID,
			Content:    content,
			ColumnType: column,
			Position:   b.columnLen(column),
			CreatedAt:  time.Now(),
		}
		b.cards = append(b.cards, temp)
		return func() { b.cards = prev }
	})
	if err != nil {
		return nil, err
	}

	created, err := b.store.CreateCard(ctx, models.NewCard{
		SessionID:  b.sessionID,
		Content:    content,
		ColumnType: column,
		Position:   temp.Position,
	})
	if err != nil {
		return nil, b.rollback(restore, "add", "card", err)
	}

	b.commit(func() { b.cards = reconcile(b.cards, temp.ID, *created, cardID) })
	b.emit(ctx, proto.InboundTypeCardCreated, proto.CardData{Session: b.sessionID, Card: created})
	return created, nil
}

// UpdateCard applies patch locally, persists it and broadcasts the stored card.
func (b *Board) UpdateCard(ctx context.Context, id int64, patch models.CardPatch) (*models.Card, error) {
	restore, err := b.optimistic("update", "card", func() func() {
		prev := slices.Clone(b.cards)
		if i := slices.IndexFunc(b.cards, func(c models.Card) bool { return c.ID == id }); i >= 0 {
			applyCardPatch(&b.cards[i], patch)
		}
		return func() { b.cards = prev }
	})
	if err != nil {
		return nil, err
	}

	updated, err := b.store.UpdateCard(ctx, id, patch)
	if err != nil {
		return nil, b.rollback(restore, "update", "card", err)
	}

	b.commit(func() { b.cards = replace(b.cards, *updated, cardID) })
	b.emit(ctx, proto.InboundTypeCardUpdated, proto.CardData{Session: b.sessionID, Card: updated})
	return updated, nil
}

// RemoveCard drops the card locally, deletes it and broadcasts the removal.
func (b *Board) RemoveCard(ctx context.Context, id int64) error {
	restore, err := b.optimistic("remove", "card", func() func() {
		prev := slices.Clone(b.cards)
		b.cards = slices.DeleteFunc(b.cards, func(c models.Card) bool { return c.ID == id })
		return func() { b.cards = prev }
	})
	if err != nil {
		return err
	}

	if err := b.store.DeleteCard(ctx, id); err != nil {
		return b.rollback(restore, "remove", "card", err)
	}

	b.commit(nil)
	b.emit(ctx, proto.InboundTypeCardDeleted, proto.CardDeletedData{Session: b.sessionID, CardID: id})
	return nil
}

// AddActionItem inserts a pending placeholder, persists it and broadcasts the result.
func (b *Board) AddActionItem(ctx context.Context, title, description, assignedTo string) (*models.ActionItem, error) {
	var temp models.ActionItem
	restore, err := b.optimistic("add", "action item", func() func() {
		prev := slices.Clone(b.actionItems)
		b.tempID--
		temp = models.ActionItem{
			ID:          b.tempID,
			SessionID:   b.sessionID,
			Title:       title,
			Description: description,
			AssignedTo:  assignedTo,
			Status:      models.ActionItemPending,
			CreatedAt:   time.Now(),
		}
		b.actionItems = append(b.actionItems, temp)
		return func() { b.actionItems = prev }
	})
	if err != nil {
		return nil, err
	}

	created, err := b.store.CreateActionItem(ctx, models.NewActionItem{
		SessionID:   b.sessionID,
		Title:       title,
		Description: description,
		AssignedTo:  assignedTo,
	})
	if err != nil {
		return nil, b.rollback(restore, "add", "action item", err)
	}

	b.commit(func() { b.actionItems = reconcile(b.actionItems, temp.ID, *created, actionItemID) })
	b.emit(ctx, proto.InboundTypeActionItemCreated, proto.ActionItemData{Session: b.sessionID, ActionItem: created})
	return created, nil
}

// UpdateActionItem applies patch locally, persists it and broadcasts the stored item.
func (b *Board) UpdateActionItem(ctx context.Context, id int64, patch models.ActionItemPatch) (*models.ActionItem, error) {
	restore, err := b.optimistic("update", "action item", func() func() {
		prev := slices.Clone(b.actionItems)
		if i := slices.IndexFunc(b.actionItems, func(a models.ActionItem) bool { return a.ID == id }); i >= 0 {
			applyActionItemPatch(&b.actionItems[i], patch)
		}
		return func() { b.actionItems = prev }
	})
	if err != nil {
		return nil, err
	}

	updated, err := b.store.UpdateActionItem(ctx, id, patch)
	if err != nil {
		return nil, b.rollback(restore, "update", "action item", err)
	}

	b.commit(func() { b.actionItems = replace(b.actionItems, *updated, actionItemID) })
	b.emit(ctx, proto.InboundTypeActionItemUpdated, proto.ActionItemData{Session: b.sessionID, ActionItem: updated})
	return updated, nil
}

// ChangeActionItemStatus is UpdateActionItem restricted to the status field.
func (b *Board) ChangeActionItemStatus(ctx context.Context, id int64, status models.ActionItemStatus) (*models.ActionItem, error) {
	if !status.Valid() {
		return nil, b.fail("update", "action item", fmt.Errorf("unknown status %q", status))
	}
	return b.UpdateActionItem(ctx, id, models.ActionItemPatch{Status: &status})
}

// RemoveActionItem drops the item locally, deletes it and broadcasts the removal.
func (b *Board) RemoveActionItem(ctx context.Context, id int64) error {
	restore, err := b.optimistic("remove", "action item", func() func() {
		prev := slices.Clone(b.actionItems)
		b.actionItems = slices.DeleteFunc(b.actionItems, func(a models.ActionItem) bool { return a.ID == id })
		return func() { b.actionItems = prev }
	})
	if err != nil {
		return err
	}

	if err := b.store.DeleteActionItem(ctx, id); err != nil {
		return b.rollback(restore, "remove", "action item", err)
	}

	b.commit(nil)
	b.emit(ctx, proto.InboundTypeActionItemDeleted, proto.ActionItemDeletedData{Session: b.sessionID, ActionItemID: id})
	return nil
}

// ToggleReady flips the local ready flag and announces it. The flag is reverted
// if the message cannot be sent.
func (b *Board) ToggleReady(ctx context.Context) error {
	if err := b.requireIdentity("update", "ready status"); err != nil {
		return err
	}

	var ready bool
	b.update(func() bool {
		b.isReady = !b.isReady
		ready = b.isReady
		return true
	})

	err := b.emitter.Emit(ctx, proto.InboundTypeMarkReady, proto.MarkReadyData{
		Session: b.sessionID,
		User:    b.username,
		Ready:   ready,
	})
	if err != nil {
		return b.rollback(func() { b.isReady = !ready }, "update", "ready status", err)
	}
	return nil
}

// Watch registers fn to receive a copy of the state after every change.
func (b *Board) Watch(fn func(State)) *Subscription {
	b.mu.Lock()
	b.nextWatch++
	id := b.nextWatch
	b.watchers[id] = fn
	b.mu.Unlock()

	return newSubscription(func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	})
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// OperationError returns the last operation error message, if any.
func (b *Board) OperationError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opErr
}

// DismissError clears the operation error.
func (b *Board) DismissError() {
	b.update(func() bool {
		if b.opErr == "" {
			return false
		}
		b.opErr = ""
		return true
	})
}

func (b *Board) requireIdentity(verb, noun string) error {
	if b.sessionID == "" || b.username == "" {
		return b.fail(verb, noun, ErrMissingIdentity)
	}
	return nil
}

// optimistic checks identity, then runs apply under the lock. apply returns the
// closure that undoes its change.
func (b *Board) optimistic(verb, noun string, apply func() func()) (func(), error) {
	if err := b.requireIdentity(verb, noun); err != nil {
		return nil, err
	}
	var restore func()
	b.update(func() bool {
		restore = apply()
		return true
	})
	return restore, nil
}

func (b *Board) rollback(restore func(), verb, noun string, cause error) error {
	opErr := &OperationError{Verb: verb, Noun: noun, Err: cause}
	b.update(func() bool {
		restore()
		b.opErr = opErr.Error()
		return true
	})
	return opErr
}

func (b *Board) commit(apply func()) {
	b.update(func() bool {
		if apply != nil {
			apply()
		}
		b.opErr = ""
		return true
	})
}

func (b *Board) fail(verb, noun string, cause error) error {
	opErr := &OperationError{Verb: verb, Noun: noun, Err: cause}
	b.update(func() bool {
		b.opErr = opErr.Error()
		return true
	})
	return opErr
}

// emit broadcasts on a best-effort basis; the write already succeeded.
func (b *Board) emit(ctx context.Context, msgType string, data any) {
	if err := b.emitter.Emit(ctx, msgType, data); err != nil {
		b.log.Warn().Err(err).Str("type", msgType).Msg("failed to broadcast change")
	}
}

// update runs fn under the lock and notifies watchers if it reports a change.
func (b *Board) update(fn func() bool) {
	b.mu.Lock()
	if !fn() {
		b.mu.Unlock()
		return
	}
	state := b.stateLocked()
	ids := make([]uint64, 0, len(b.watchers))
	for id := range b.watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	watchers := make([]func(State), 0, len(ids))
	for _, id := range ids {
		watchers = append(watchers, b.watchers[id])
	}
	b.mu.Unlock()

	for _, w := range watchers {
		w(state)
	}
}

func (b *Board) stateLocked() State {
	return State{
		Session:        b.session,
		Cards:          slices.Clone(b.cards),
		ActionItems:    slices.Clone(b.actionItems),
		OnlineUsers:    slices.Clone(b.online),
		ReadyUsers:     slices.Clone(b.ready),
		IsReady:        b.isReady,
		OperationError: b.opErr,
	}
}

func (b *Board) columnLen(column models.ColumnType) int {
	n := 0
	for _, c := range b.cards {
		if c.ColumnType == column {
			n++
		}
	}
	return n
}

func cardID(c models.Card) int64             { return c.ID }
func actionItemID(a models.ActionItem) int64 { return a.ID }

// replace swaps the element with the same id as v. Unknown ids are ignored.
func replace[T any](list []T, v T, id func(T) int64) []T {
	if i := slices.IndexFunc(list, func(x T) bool { return id(x) == id(v) }); i >= 0 {
		list[i] = v
	}
	return list
}

// reconcile swaps the placeholder tempID for the stored entity v. If v already
// arrived through another path the placeholder is dropped instead.
func reconcile[T any](list []T, tempID int64, v T, id func(T) int64) []T {
	if slices.ContainsFunc(list, func(x T) bool { return id(x) == id(v) }) {
		list = replace(list, v, id)
		return slices.DeleteFunc(list, func(x T) bool { return id(x) == tempID })
	}
	if i := slices.IndexFunc(list, func(x T) bool { return id(x) == tempID }); i >= 0 {
		list[i] = v
		return list
	}
	return append(list, v)
}

func applyCardPatch(c *models.Card, p models.CardPatch) {
	if p.Content != nil {
		c.Content = *p.Content
	}
	if p.ColumnType != nil {
		c.ColumnType = *p.ColumnType
	}
	if p.Position != nil {
		c.Position = *p.Position
	}
}

func applyActionItemPatch(a *models.ActionItem, p models.ActionItemPatch) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.AssignedTo != nil {
		a.AssignedTo = *p.AssignedTo
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}
