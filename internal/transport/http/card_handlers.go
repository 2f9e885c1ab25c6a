package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/store"
)

// CardHandlers provides HTTP handlers for card endpoints.
type CardHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewCardHandlers creates a new card handlers instance.
func NewCardHandlers(st store.Store, logger *zerolog.Logger) *CardHandlers {
	return &CardHandlers{store: st, log: logger}
}

// CreateCardRequest represents the create card request body.
type CreateCardRequest struct {
	SessionID  string            `json:"sessionId" binding:"required"`
	Content    string            `json:"content" binding:"required,max=500"`
	ColumnType models.ColumnType `json:"columnType" binding:"required,oneof=went_well improve actions"`
	Position   int               `json:"position" binding:"gte=0"`
}

// UpdateCardRequest represents the update card request body. Omitted fields
// are left unchanged.
type UpdateCardRequest struct {
	Content    *string            `json:"content" binding:"omitempty,max=500"`
	ColumnType *models.ColumnType `json:"columnType" binding:"omitempty,oneof=went_well improve actions"`
	Position   *int               `json:"position" binding:"omitempty,gte=0"`
}

// CreateCard handles card creation.
// POST /api/cards
func (h *CardHandlers) CreateCard(c *gin.Context) {
	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create card request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindErrorMessage(err)})
		return
	}
	if !trimRequired(&req.Content) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content is required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetSession(ctx, req.SessionID); err != nil {
		respondStoreError(c, h.log, err, "session not found", "failed to create card")
		return
	}

	card, err := h.store.CreateCard(ctx, models.NewCard{
		SessionID:  req.SessionID,
		Content:    req.Content,
		ColumnType: req.ColumnType,
		Position:   req.Position,
	})
	if err != nil {
		h.log.Error().Err(err).Str("session", req.SessionID).Msg("failed to create card")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create card"})
		return
	}

	h.log.Debug().Str("session", card.SessionID).Int64("card_id", card.ID).Msg("card created")
	c.JSON(http.StatusCreated, card)
}

// ListCards lists the cards of a session.
// GET /api/cards?sessionId=
func (h *CardHandlers) ListCards(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sessionId is required"})
		return
	}

	cards, err := h.store.ListCards(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session", sessionID).Msg("failed to list cards")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get cards"})
		return
	}
	c.JSON(http.StatusOK, cards)
}

// UpdateCard applies a partial update and returns the updated card.
// PUT /api/cards/:id
func (h *CardHandlers) UpdateCard(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update card request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindErrorMessage(err)})
		return
	}
	patch := models.CardPatch{Content: req.Content, ColumnType: req.ColumnType, Position: req.Position}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no fields provided to update"})
		return
	}
	if patch.Content != nil && !trimRequired(patch.Content) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content must not be empty"})
		return
	}

	card, err := h.store.UpdateCard(c.Request.Context(), id, patch)
	if err != nil {
		respondStoreError(c, h.log, err, "card not found", "failed to update card")
		return
	}
	c.JSON(http.StatusOK, card)
}

// DeleteCard removes a card.
// DELETE /api/cards/:id
func (h *CardHandlers) DeleteCard(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteCard(c.Request.Context(), id); err != nil {
		respondStoreError(c, h.log, err, "card not found", "failed to delete card")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("deleted card %d", id)})
}

// parseID reads a positive numeric :id path parameter, answering 400 otherwise.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}
