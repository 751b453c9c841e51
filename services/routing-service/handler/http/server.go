package httphandler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the REST API.
func NewRouter(h *Handler, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.Log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", ShipperHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(corsOrigins) == 0 || (len(corsOrigins) == 1 && corsOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api/v1")
	if h.Tracking != nil {
		api.POST("/webhooks/tracking", h.TrackingWebhook)
	}

	tenant := api.Group("")
	tenant.Use(h.RequireOrganization)
	{
		tenant.POST("/rates", h.QuoteRate)
		tenant.POST("/rates/batch", h.QuoteRates)
		tenant.POST("/carrier-selection", h.SelectCarrier)
		tenant.POST("/orders", h.CreateOrder)
		tenant.GET("/orders/:id", h.GetOrder)
		if h.Usage != nil {
			tenant.GET("/usage", h.GetUsage)
		}
	}
	return r
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if seq := c.GetHeader(ShipperHeader); seq != "" {
			entry = entry.WithField("shipper", seq)
		}
		if c.Writer.Status() >= 500 {
			entry.Warn("request served")
			return
		}
		entry.Debug("request served")
	}
}
