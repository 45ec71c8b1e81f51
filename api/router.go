package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Bookings   *BookingHandler
	Companions *CompanionHandler
	Webhooks   *WebhookHandler
	Admin      *AdminHandler
}

type RouterConfig struct {
	AdminSecret string
	AdminIssuer string
	// TrustedProxies may set X-Forwarded-For; when empty the peer address is used.
	TrustedProxies []string
	// Webhook rate limit per client address.
	RatePerSecond float64
	Burst         int
}

// NewRouter lays out the public HTTP surface.
func NewRouter(h Handlers, cfg RouterConfig, log *logrus.Logger) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), requestLogger(log))

	v1 := router.Group("/api/v1")
	h.Bookings.Register(v1)
	h.Companions.Register(v1)

	webhooks := router.Group("/webhooks", NewRateLimiter(cfg.RatePerSecond, cfg.Burst).Middleware())
	h.Webhooks.RegisterWebhooks(webhooks)
	h.Webhooks.RegisterReturns(router.Group("/payments"))

	admin := router.Group("/admin", RequireAdmin(cfg.AdminSecret, cfg.AdminIssuer, log))
	h.Admin.Register(admin)

	return router
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}
