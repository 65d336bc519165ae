package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	commonmw "github.com/osu/ShopiPing/common/middleware"
	"github.com/osu/ShopiPing/controllers"
	"github.com/osu/ShopiPing/middleware"
)

const serviceName = "cart-recovery"

func RegisterRoutes(
	router *gin.Engine,
	webhooks *controllers.WebhookController,
	recovery *controllers.RecoveryController,
	shopifySecret string,
	limiter *commonmw.RateLimiter,
) {
	// Public
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	})

	// Shopify webhooks
	hooks := router.Group("/webhooks", commonmw.RateLimitMiddleware(limiter), middleware.VerifyShopifyWebhook(shopifySecret))
	{
		hooks.POST("/cart/create", webhooks.CartCreated)
		hooks.POST("/orders/create", webhooks.OrderCreated)
	}

	// Admin only
	admin := router.Group("/recovery", middleware.AuthMiddleware(), middleware.AdminOnly())
	{
		admin.GET("/checks", recovery.ListPendingChecks)
		admin.DELETE("/checks/:cart_id", recovery.CancelCheck)
		admin.GET("/reminders", recovery.GetReminderLogs)
	}
}
