package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reno-apps/ordermerge/internal/server/http/dto"
)

// WebhookHandler receives order-creation webhooks.
type WebhookHandler struct {
	facade WebhookFacade
	logger *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{facade: facade, logger: logger}
}

// Receive handles POST /api/webhooks/orders. Detection failures are reported
// as 500 so the source redelivers; the handler itself never rejects a
// well-formed event.
func (h *WebhookHandler) Receive(c *gin.Context) {
	shop := CurrentShop(c)

	var request dto.OrderEventRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	event := request.ToModel()
	if event.ID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	group, err := h.facade.HandleOrderEvent(c.Request.Context(), shop, event)
	if err != nil {
		h.logger.Error("webhook processing failed",
			slog.String("shop", shop),
			slog.String("order", event.ID),
			slog.String("error", err.Error()))
		c.Status(http.StatusInternalServerError)
		return
	}

	response := dto.WebhookResponse{Received: true}
	if group != nil {
		response.GroupID = group.ID
	}
	c.JSON(http.StatusOK, response)
}
