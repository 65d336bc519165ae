package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/gin-gonic/gin"
	apperrors "github.com/osu/ShopiPing/common/errors"
)

const (
	// ShopifyHmacHeader carries the base64 HMAC-SHA256 of the raw request body.
	ShopifyHmacHeader = "X-Shopify-Hmac-Sha256"
	// RawBodyKey holds the verified raw body in the gin context.
	RawBodyKey = "webhook_raw_body"

	maxWebhookBody = 1 << 20
)

// VerifyShopifyWebhook rejects any request whose body was not signed with secret.
// Verified requests continue with the body still readable.
func VerifyShopifyWebhook(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		if !ValidSignature(key, body, c.GetHeader(ShopifyHmacHeader)) {
			abortUnauthorized(c, nil)
			return
		}

		c.Set(RawBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// ValidSignature compares the provided base64 digest with the HMAC of body in constant time.
func ValidSignature(key, body []byte, provided string) bool {
	if provided == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the header value Shopify would send for body.
func Sign(key, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func abortUnauthorized(c *gin.Context, err error) {
	appErr := apperrors.ErrWebhookSignature
	if err != nil {
		appErr = appErr.Wrap(err)
	}
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.Code, appErr)
}
