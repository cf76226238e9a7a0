package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/account-ledger-engine/internal/server/handler"
	"github.com/account-ledger-engine/internal/server/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	operationHandler *handler.OperationHandler,
	auditHandler *handler.AuditHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Account management
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("/:id", accountHandler.GetByID)
		}

		// Ledger operations
		operations := v1.Group("/operations")
		{
			operations.POST("/deposit", operationHandler.Deposit)
			operations.POST("/withdraw", operationHandler.Withdraw)
			operations.POST("/transfer", operationHandler.Transfer)
		}

		// Audit log
		v1.GET("/audit", auditHandler.Query)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
