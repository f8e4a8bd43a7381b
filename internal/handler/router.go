package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/askgate/internal/middleware"
)

type RouterDeps struct {
	QA            *QAHandler
	Documents     *DocumentHandler
	Health        *HealthHandler
	JWTSecret     []byte
	AskRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", deps.Health.Check)

	askGroup := api.Group("")
	if deps.AskRateWindow > 0 {
		askGroup.Use(middleware.RateLimit(deps.AskRateWindow))
	}
	askGroup.POST("/qa/ask", deps.QA.Ask)

	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id", deps.Documents.Get)

	mutGroup := api.Group("")
	mutGroup.Use(middleware.APIAuth(deps.JWTSecret))
	mutGroup.POST("/documents", deps.Documents.Upload)
	mutGroup.DELETE("/documents/:id", deps.Documents.Delete)
}
