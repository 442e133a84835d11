package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/server/http/dto"
)

const (
	defaultResolvedLimit = 50
	maxResolvedLimit     = 500
)

// GroupHandler manages merge group review endpoints.
type GroupHandler struct {
	facade GroupFacade
}

// NewGroupHandler constructs GroupHandler.
func NewGroupHandler(facade GroupFacade) *GroupHandler {
	return &GroupHandler{facade: facade}
}

// Pending handles GET /api/groups/pending.
func (h *GroupHandler) Pending(c *gin.Context) {
	shop := CurrentShop(c)
	groups, names, err := h.facade.PendingGroups(c.Request.Context(), shop)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	response := make([]dto.GroupResponse, 0, len(groups))
	for _, g := range groups {
		response = append(response, dto.FromGroup(g, names[g.ID]))
	}
	c.JSON(http.StatusOK, response)
}

// Resolved handles GET /api/groups.
func (h *GroupHandler) Resolved(c *gin.Context) {
	shop := CurrentShop(c)
	limit := QueryLimit(c, defaultResolvedLimit, maxResolvedLimit)
	groups, err := h.facade.ResolvedGroups(c.Request.Context(), shop, limit)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	response := make([]dto.GroupResponse, 0, len(groups))
	for _, g := range groups {
		response = append(response, dto.FromGroup(g, nil))
	}
	c.JSON(http.StatusOK, response)
}

// Approve handles POST /api/groups/:id/approve.
func (h *GroupHandler) Approve(c *gin.Context) {
	result, err := h.facade.ApproveGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrValidation):
			c.Status(http.StatusBadRequest)
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrIllegalTransition):
			c.Status(http.StatusConflict)
		default:
			// Pipeline failures are recorded on the group; the operator
			// sees the reason when listing resolved groups.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ApproveResponse{
		GroupID:    result.GroupID,
		DraftID:    result.DraftID,
		NewOrderID: result.NewOrderID,
		Completed:  result.Completed,
	})
}

// Reject handles POST /api/groups/:id/reject.
func (h *GroupHandler) Reject(c *gin.Context) {
	err := h.facade.RejectGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrValidation):
			c.Status(http.StatusBadRequest)
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrIllegalTransition):
			c.Status(http.StatusConflict)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /api/stats.
func (h *GroupHandler) Stats(c *gin.Context) {
	shop := CurrentShop(c)
	stats, err := h.facade.GroupStats(c.Request.Context(), shop)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.FromStats(stats))
}
