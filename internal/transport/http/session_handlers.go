package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/store"
)

// SessionHandlers provides HTTP handlers for session endpoints.
type SessionHandlers struct {
	store store.Store
	hub   Hub
	log   *zerolog.Logger
}

// NewSessionHandlers creates a new session handlers instance.
func NewSessionHandlers(st store.Store, hub Hub, logger *zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// CreateSessionRequest represents the create session request body.
type CreateSessionRequest struct {
	Name string `json:"name" binding:"required,max=500"`
}

// SessionListResponse wraps the session list.
type SessionListResponse struct {
	Sessions []*models.Session `json:"sessions"`
}

// PresenceResponse lists who is connected to a session right now.
type PresenceResponse struct {
	SessionID   string   `json:"sessionId"`
	OnlineUsers []string `json:"onlineUsers"`
	ReadyUsers  []string `json:"readyUsers"`
}

// CreateSession handles session creation.
// POST /api/sessions
func (h *SessionHandlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create session request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindErrorMessage(err)})
		return
	}
	if !trimRequired(&req.Name) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	session, err := h.store.CreateSession(c.Request.Context(), req.Name)
	if err != nil {
		h.log.Error().Err(err).Str("session_name", req.Name).Msg("failed to create session")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create session"})
		return
	}

	h.log.Info().Str("session", session.ID).Str("session_name", session.Name).Msg("session created")
	c.JSON(http.StatusCreated, session)
}

// ListSessions handles listing sessions.
// GET /api/sessions
func (h *SessionHandlers) ListSessions(c *gin.Context) {
	sessions, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sessions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, SessionListResponse{Sessions: sessions})
}

// GetSession returns a session with its cards and action items.
// GET /api/sessions/:id
func (h *SessionHandlers) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	session, err := h.store.GetSession(ctx, id)
	if err != nil {
		respondStoreError(c, h.log, err, "session not found", "failed to get session")
		return
	}
	cards, err := h.store.ListCards(ctx, id)
	if err != nil {
		respondStoreError(c, h.log, err, "session not found", "failed to get session")
		return
	}
	items, err := h.store.ListActionItems(ctx, id)
	if err != nil {
		respondStoreError(c, h.log, err, "session not found", "failed to get session")
		return
	}

	data := models.SessionData{
		Session:     *session,
		Cards:       make([]models.Card, 0, len(cards)),
		ActionItems: make([]models.ActionItem, 0, len(items)),
	}
	for _, card := range cards {
		data.Cards = append(data.Cards, *card)
	}
	for _, item := range items {
		data.ActionItems = append(data.ActionItems, *item)
	}
	c.JSON(http.StatusOK, data)
}

// DeleteSession removes a session and everything on its board.
// DELETE /api/sessions/:id
func (h *SessionHandlers) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteSession(c.Request.Context(), id); err != nil {
		respondStoreError(c, h.log, err, "session not found", "failed to delete session")
		return
	}

	h.log.Info().Str("session", id).Msg("session deleted")
	c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("deleted session %s", id)})
}

// GetPresence reports the online and ready users of a session.
// GET /api/sessions/:id/presence
func (h *SessionHandlers) GetPresence(c *gin.Context) {
	id := c.Param("id")
	snap, err := h.hub.Presence(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("session", id).Msg("failed to query presence")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "presence unavailable"})
		return
	}
	c.JSON(http.StatusOK, PresenceResponse{
		SessionID:   id,
		OnlineUsers: snap.Online,
		ReadyUsers:  snap.Ready,
	})
}

// respondStoreError maps store.ErrNotFound to 404 and anything else to 500.
func respondStoreError(c *gin.Context, logger *zerolog.Logger, err error, notFound, failed string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFound})
		return
	}
	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(failed)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: failed})
}
