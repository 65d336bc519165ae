package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/osu/ShopiPing/pkg/aws"
	"github.com/osu/ShopiPing/services"
	"go.uber.org/zap"
)

// HTTPMetrics is satisfied by *aws.MetricsClient.
type HTTPMetrics interface {
	services.MetricsRecorder
	IsEnabled() bool
}

// MetricsMiddleware publishes a count and a latency per route, plus an error count for
// 4xx and 5xx answers. Health checks are not counted. Failed writes are logged at warn.
func MetricsMiddleware(metrics HTTPMetrics, serviceName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil || !metrics.IsEnabled() || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		dims := routeDimensions(c, serviceName, status)

		// Off the request path; CloudWatch latency must not slow Shopify's delivery.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			services.RecordCount(ctx, metrics, logger, awspkg.MetricHTTPRequests, dims)
			services.RecordLatency(ctx, metrics, logger, awspkg.MetricHTTPLatency, elapsed, dims)
			if status >= http.StatusBadRequest {
				services.RecordCount(ctx, metrics, logger, awspkg.MetricHTTPErrors, dims)
			}
		}()
	}
}

// routeDimensions uses the route template so per-cart paths do not explode cardinality.
func routeDimensions(c *gin.Context, serviceName string, status int) map[string]string {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	return map[string]string{
		"Service":     serviceName,
		"Method":      c.Request.Method,
		"Route":       route,
		"StatusClass": statusClass(status),
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
