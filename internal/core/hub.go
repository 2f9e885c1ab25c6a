package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/metrics"
	"github.com/alexrdz/retro-flow/internal/presence"
)

// ErrHubStopped is returned by queries issued after Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// envelope carries a client's command into the hub loop. A nil cmd marks
// the client's disconnect and always follows its last command.
type envelope struct {
	client *Client
	cmd    *Command
}

type presenceQuery struct {
	session string
	reply   chan presence.Snapshot
}

// Hub binds connections to sessions and routes session events.
//
// All state is owned by the goroutine running Run. Connection events reach it
// through channels and are handled one at a time, so the presence registry
// is never touched concurrently.
type Hub struct {
	registry *presence.Registry
	clients  map[*Client]struct{}
	rooms    map[string]*Room

	register chan *Client
	inbox    chan envelope
	queries  chan presenceQuery
	done     chan struct{}

	log *zerolog.Logger
}

// NewHub creates a hub with an empty presence registry.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry:   presence.NewRegistry(),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]*Room),
		register: make(chan *Client),
		inbox:    make(chan envelope, 64),
		queries:  make(chan presenceQuery),
		done:     make(chan struct{}),
		log:      logger,
	}
}

// Run processes connection events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.SetConnections(len(h.clients))
			go h.pump(ctx, c)
			h.log.Debug().Str("conn_id", c.ID).Msg("client registered")
		case env := <-h.inbox:
			if env.cmd == nil {
				h.disconnect(env.client)
				continue
			}
			h.handle(env.client, env.cmd)
		case q := <-h.queries:
			q.reply <- h.registry.Snapshot(q.session)
		case <-ctx.Done():
			return
		}
	}
}

// RegisterClient hands a new connection to the hub. Commands sent on
// c.Commands are processed in order after registration.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient signals that the connection is gone. The caller must stop
// sending on c.Commands before calling it; pending commands are still
// processed before the disconnect.
func (h *Hub) UnregisterClient(c *Client) {
	close(c.Commands)
}

// Presence returns the presence snapshot of a session.
func (h *Hub) Presence(ctx context.Context, session string) (presence.Snapshot, error) {
	q := presenceQuery{session: session, reply: make(chan presence.Snapshot, 1)}
	select {
	case h.queries <- q:
	case <-h.done:
		return presence.Snapshot{}, ErrHubStopped
	case <-ctx.Done():
		return presence.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-q.reply:
		return snap, nil
	case <-ctx.Done():
		return presence.Snapshot{}, ctx.Err()
	}
}

// pump forwards one client's commands into the hub loop, preserving order,
// and queues the disconnect behind them once the command channel is closed.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				select {
				case h.inbox <- envelope{client: c}:
				case <-ctx.Done():
				}
				return
			}
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(c *Client, cmd *Command) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	metrics.CommandReceived(cmd.Kind.String())

	switch cmd.Kind {
	case CommandJoin:
		h.join(c, cmd.Session, cmd.User)
	case CommandLeave:
		h.leave(c, cmd.Session)
	case CommandMarkReady:
		h.markReady(c, cmd)
	case CommandCardCreated, CommandCardUpdated, CommandCardDeleted,
		CommandActionItemCreated, CommandActionItemUpdated, CommandActionItemDeleted:
		h.relay(c, cmd)
	default:
		h.sendError(c, ErrCodeInvalidMessage, "unknown command")
	}
}

func (h *Hub) join(c *Client, session, user string) {
	if session == "" || user == "" {
		h.sendError(c, ErrCodeBadRequest, "session and user are required")
		return
	}

	if current, ok := h.registry.Lookup(c.ID); ok {
		if current.Session == session && current.Username == user {
			h.sendSnapshot(c, session)
			return
		}
		// One binding per connection: drop the old one before rebinding.
		h.unbind(c)
	}

	newlyOnline := h.registry.AddUser(session, user, c.ID)
	room := h.rooms[session]
	if room == nil {
		room = NewRoom(session)
		h.rooms[session] = room
	}
	room.AddClient(c)
	h.recordPresence()

	h.sendSnapshot(c, session)
	if newlyOnline {
		room.Broadcast(&Event{Kind: EventUserJoined, Session: session, User: user}, c)
	}

	h.log.Info().
		Str("conn_id", c.ID).
		Str("session", session).
		Str("user", user).
		Int("connections", room.Len()).
		Msg("user joined session")
}

func (h *Hub) leave(c *Client, session string) {
	current, ok := h.registry.Lookup(c.ID)
	if !ok || (session != "" && current.Session != session) {
		h.sendError(c, ErrCodeNotInSession, "not joined to session")
		return
	}
	h.unbind(c)
}

func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.unbind(c)
	delete(h.clients, c)
	close(c.Events)
	metrics.SetConnections(len(h.clients))
	h.log.Debug().Str("conn_id", c.ID).Msg("client unregistered")
}

// unbind removes c's presence binding and tells the remaining peers when the
// user went offline.
func (h *Hub) unbind(c *Client) {
	dep, ok := h.registry.RemoveByConnection(c.ID)
	if !ok {
		return
	}

	room := h.rooms[dep.Session]
	if room != nil {
		room.RemoveClient(c)
		if room.Empty() {
			delete(h.rooms, dep.Session)
		}
	}
	h.recordPresence()

	if dep.Offline && room != nil {
		room.Broadcast(&Event{Kind: EventUserLeft, Session: dep.Session, User: dep.Username}, c)
	}

	h.log.Info().
		Str("conn_id", c.ID).
		Str("session", dep.Session).
		Str("user", dep.Username).
		Bool("offline", dep.Offline).
		Msg("user left session")
}

func (h *Hub) markReady(c *Client, cmd *Command) {
	current, ok := h.boundTo(c, cmd.Session)
	if !ok {
		return
	}
	user := cmd.User
	if user == "" {
		user = current.Username
	}
	if user != current.Username {
		h.sendError(c, ErrCodeBadRequest, "user does not match joined user")
		return
	}

	h.registry.SetReady(current.Session, user, cmd.Ready)
	h.rooms[current.Session].Broadcast(&Event{
		Kind:       EventReadyStatusChanged,
		Session:    current.Session,
		User:       user,
		Ready:      cmd.Ready,
		ReadyUsers: h.registry.Ready(current.Session),
	}, nil)
}

// relay fans a board mutation out to every peer except the originator,
// which already applied it locally.
func (h *Hub) relay(c *Client, cmd *Command) {
	current, ok := h.boundTo(c, cmd.Session)
	if !ok {
		return
	}

	ev, err := relayEvent(current.Session, cmd)
	if err != nil {
		h.sendError(c, err.Code, err.Message)
		return
	}
	h.rooms[current.Session].Broadcast(ev, c)

	h.log.Debug().
		Str("conn_id", c.ID).
		Str("session", current.Session).
		Str("event", ev.Kind.String()).
		Msg("relayed board event")
}

func relayEvent(session string, cmd *Command) (*Event, *CoreError) {
	ev := &Event{Session: session}
	switch cmd.Kind {
	case CommandCardCreated, CommandCardUpdated:
		if cmd.Card == nil || cmd.Card.ID == 0 {
			return nil, coreError(ErrCodeBadRequest, "card with id is required")
		}
		if cmd.Card.SessionID != "" && cmd.Card.SessionID != session {
			return nil, coreError(ErrCodeBadRequest, "card belongs to another session")
		}
		if cmd.Card.ColumnType != "" && !cmd.Card.ColumnType.Valid() {
			return nil, coreError(ErrCodeBadRequest, "unknown column type")
		}
		ev.Kind = EventCardCreated
		if cmd.Kind == CommandCardUpdated {
			ev.Kind = EventCardUpdated
		}
		ev.Card = cmd.Card
	case CommandCardDeleted:
		if cmd.CardID == 0 {
			return nil, coreError(ErrCodeBadRequest, "card_id is required")
		}
		ev.Kind = EventCardDeleted
		ev.CardID = cmd.CardID
	case CommandActionItemCreated, CommandActionItemUpdated:
		if cmd.ActionItem == nil || cmd.ActionItem.ID == 0 {
			return nil, coreError(ErrCodeBadRequest, "action item with id is required")
		}
		if cmd.ActionItem.SessionID != "" && cmd.ActionItem.SessionID != session {
			return nil, coreError(ErrCodeBadRequest, "action item belongs to another session")
		}
		if cmd.ActionItem.Status != "" && !cmd.ActionItem.Status.Valid() {
			return nil, coreError(ErrCodeBadRequest, "unknown action item status")
		}
		ev.Kind = EventActionItemCreated
		if cmd.Kind == CommandActionItemUpdated {
			ev.Kind = EventActionItemUpdated
		}
		ev.ActionItem = cmd.ActionItem
	case CommandActionItemDeleted:
		if cmd.ActionItemID == 0 {
			return nil, coreError(ErrCodeBadRequest, "action_item_id is required")
		}
		ev.Kind = EventActionItemDeleted
		ev.ActionItemID = cmd.ActionItemID
	}
	return ev, nil
}

// boundTo returns c's binding if it matches session, sending an error
// otherwise. An empty session means the bound one.
func (h *Hub) boundTo(c *Client, session string) (presence.Member, bool) {
	current, ok := h.registry.Lookup(c.ID)
	if !ok || (session != "" && current.Session != session) {
		h.sendError(c, ErrCodeNotInSession, "not joined to session")
		return presence.Member{}, false
	}
	return current, true
}

func (h *Hub) sendSnapshot(c *Client, session string) {
	snap := h.registry.Snapshot(session)
	deliver(c, &Event{
		Kind:        EventPresenceUpdate,
		Session:     session,
		OnlineUsers: snap.Online,
		ReadyUsers:  snap.Ready,
	})
}

func (h *Hub) sendError(c *Client, code, msg string) {
	h.log.Debug().Str("conn_id", c.ID).Str("code", code).Msg(msg)
	deliver(c, &Event{Kind: EventError, Error: coreError(code, msg)})
}

func (h *Hub) recordPresence() {
	metrics.SetPresence(h.registry.Sessions(), h.registry.Connections())
}
