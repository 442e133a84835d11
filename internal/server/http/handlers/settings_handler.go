package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/server/http/dto"
)

// SettingsHandler manages per-shop matching configuration endpoints.
type SettingsHandler struct {
	facade SettingsFacade
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(facade SettingsFacade) *SettingsHandler {
	return &SettingsHandler{facade: facade}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	rules, err := h.facade.Settings(c.Request.Context(), CurrentShop(c))
	if err != nil {
		if errors.Is(err, domainErrors.ErrValidation) {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.FromRules(*rules))
}

// Update handles PUT /api/settings.
func (h *SettingsHandler) Update(c *gin.Context) {
	var request dto.SettingsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	rules, err := h.facade.UpdateSettings(c.Request.Context(), request.ToModel(CurrentShop(c)))
	if err != nil {
		if errors.Is(err, domainErrors.ErrValidation) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.FromRules(*rules))
}
