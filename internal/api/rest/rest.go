package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/chainrep/identity-engine/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Status endpoint (public read access)
		v1.GET("/status", handler.GetStatus)

		// Ledger reads (public read access)
		v1.GET("/identities/:address/verify", handler.VerifyIdentity)
		v1.GET("/identities/:address/ledger", handler.GetLedgerIdentity)

		// Mutating operations (require API key authentication)
		v1.POST("/reinitialize", middleware.APIKeyAuth(authCfg), handler.Reinitialize)
		v1.POST("/identities/:address/fix", middleware.APIKeyAuth(authCfg), handler.FixIdentity)
		v1.POST("/sync", middleware.APIKeyAuth(authCfg), handler.TriggerSync)
	}
}
