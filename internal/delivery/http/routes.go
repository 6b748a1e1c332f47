package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pricelens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log logrus.FieldLogger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/scans", handler.RunScan)

		digests := v1.Group("/digests")
		{
			digests.GET("/latest", handler.LatestDigest)
			digests.GET("/latest/changes", handler.LatestChanges)
			digests.GET("/:date", handler.DigestByDate)
		}

		v1.POST("/normalize", handler.Normalize)
		v1.POST("/match", handler.Match)
		v1.GET("/signature", handler.Signature)
	}

	return router
}
