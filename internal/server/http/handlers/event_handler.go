package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reno-apps/ordermerge/internal/server/http/dto"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// EventHandler serves the delivery audit log.
type EventHandler struct {
	facade EventFacade
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(facade EventFacade) *EventHandler {
	return &EventHandler{facade: facade}
}

// Recent handles GET /api/events.
func (h *EventHandler) Recent(c *gin.Context) {
	shop := CurrentShop(c)
	limit := QueryLimit(c, defaultEventLimit, maxEventLimit)
	events, err := h.facade.RecentEvents(c.Request.Context(), shop, limit)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	response := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		response = append(response, dto.FromEvent(e))
	}
	c.JSON(http.StatusOK, response)
}
