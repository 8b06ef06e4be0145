package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace/pkg/metrics"
)

// NewRouter wires public endpoints and the identity-protected order and admin routes.
func NewRouter(orders *OrderHandler, admin *AdminHandler, m *metrics.Metrics, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery(), RequestLogger(logger, m))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	protected := router.Group("/")
	protected.Use(IdentityMiddleware(logger))
	orders.RegisterRoutes(protected)
	if admin != nil {
		admin.RegisterRoutes(protected)
	}
	return router
}
