package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/store"
)

// ActionItemHandlers provides HTTP handlers for action item endpoints.
type ActionItemHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewActionItemHandlers creates a new action item handlers instance.
func NewActionItemHandlers(st store.Store, logger *zerolog.Logger) *ActionItemHandlers {
	return &ActionItemHandlers{store: st, log: logger}
}

// CreateActionItemRequest represents the create action item request body.
type CreateActionItemRequest struct {
	SessionID   string `json:"sessionId" binding:"required"`
	Title       string `json:"title" binding:"required,max=500"`
	Description string `json:"description" binding:"max=500"`
	AssignedTo  string `json:"assignedTo" binding:"max=500"`
}

// UpdateActionItemRequest represents the update action item request body.
type UpdateActionItemRequest struct {
	Title       *string                  `json:"title" binding:"omitempty,max=500"`
	Description *string                  `json:"description" binding:"omitempty,max=500"`
	AssignedTo  *string                  `json:"assignedTo" binding:"omitempty,max=500"`
	Status      *models.ActionItemStatus `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
}

// CreateActionItem handles action item creation.
// POST /api/action-items
func (h *ActionItemHandlers) CreateActionItem(c *gin.Context) {
	var req CreateActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create action item request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindErrorMessage(err)})
		return
	}
	if !trimRequired(&req.Title) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title is required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetSession(ctx, req.SessionID); err != nil {
		respondStoreError(c, h.log, err, "session not found", "failed to create action item")
		return
	}

	item, err := h.store.CreateActionItem(ctx, models.NewActionItem{
		SessionID:   req.SessionID,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		h.log.Error().Err(err).Str("session", req.SessionID).Msg("failed to create action item")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create action item"})
		return
	}

	h.log.Debug().Str("session", item.SessionID).Int64("action_item_id", item.ID).Msg("action item created")
	c.JSON(http.StatusCreated, item)
}

// ListActionItems lists the action items of a session.
// GET /api/action-items?sessionId=
func (h *ActionItemHandlers) ListActionItems(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sessionId is required"})
		return
	}

	items, err := h.store.ListActionItems(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session", sessionID).Msg("failed to list action items")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get action items"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// UpdateActionItem applies a partial update and returns the updated item.
// PUT /api/action-items/:id
func (h *ActionItemHandlers) UpdateActionItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update action item request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindErrorMessage(err)})
		return
	}
	patch := models.ActionItemPatch{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Status:      req.Status,
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no fields provided to update"})
		return
	}
	if patch.Title != nil && !trimRequired(patch.Title) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title must not be empty"})
		return
	}

	item, err := h.store.UpdateActionItem(c.Request.Context(), id, patch)
	if err != nil {
		respondStoreError(c, h.log, err, "action item not found", "failed to update action item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteActionItem removes an action item.
// DELETE /api/action-items/:id
func (h *ActionItemHandlers) DeleteActionItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteActionItem(c.Request.Context(), id); err != nil {
		respondStoreError(c, h.log, err, "action item not found", "failed to delete action item")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("deleted action item %d", id)})
}
