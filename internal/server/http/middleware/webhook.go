package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ShopContextKey stores the verified shop domain in the request context.
const ShopContextKey = "shopDomain"

// Header names used by webhook deliveries and the admin API.
const (
	HeaderShopDomain  = "X-Shop-Domain"
	HeaderWebhookHmac = "X-Webhook-Hmac"
)

// VerifyWebhook authenticates webhook deliveries: the X-Webhook-Hmac header
// must carry the base64 HMAC-SHA256 of the raw body under the shared secret.
// The body is restored for downstream binding.
func VerifyWebhook(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		shop := c.GetHeader(HeaderShopDomain)
		if shop == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, key)
		mac.Write(body)
		expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(expected), []byte(c.GetHeader(HeaderWebhookHmac))) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(ShopContextKey, shop)
		c.Next()
	}
}

// RequireShop guards admin endpoints: the shop the request operates on comes
// from the X-Shop-Domain header.
func RequireShop() gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := c.GetHeader(HeaderShopDomain)
		if shop == "" {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Set(ShopContextKey, shop)
		c.Next()
	}
}
