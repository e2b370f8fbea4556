package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// RequestLogger logs each request and records its latency.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		method := utils.CopyString(c.Method())
		metrics.RecordRequest(RouteLabel(c), method, status, latency)

		logger.Info("request",
			zap.String("method", method),
			zap.String("path", utils.CopyString(c.Path())),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", utils.CopyString(c.IP())),
		)
		return err
	}
}

// RouteLabel returns the route pattern of the handler that ran last, never
// the raw request path, so metric cardinality stays bounded. Fiber reuses
// request buffers after the handler returns, so the label is copied.
func RouteLabel(c *fiber.Ctx) string {
	route := c.Route()
	if route == nil || route.Path == "" {
		return "unmatched"
	}
	return utils.CopyString(route.Path)
}
