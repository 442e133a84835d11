package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reno-apps/ordermerge/internal/server/http/middleware"
)

// CurrentShop extracts the verified shop domain from context.
func CurrentShop(c *gin.Context) string {
	val, ok := c.Get(middleware.ShopContextKey)
	if !ok {
		return ""
	}
	shop, _ := val.(string)
	return shop
}

// QueryLimit parses the limit query parameter, falling back when absent or
// out of range.
func QueryLimit(c *gin.Context, fallback, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > max {
		return fallback
	}
	return limit
}
