package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pagoschile/oneclick-api/internal/auth"
	"github.com/pagoschile/oneclick-api/telemetry"
)

func SetupRoutes(r *gin.Engine, h *Handlers, a *AuthHandlers, authCfg auth.Config) {
	r.POST("/auth/register", a.Register)
	r.POST("/auth/login", a.Login)

	v1 := r.Group("/v1", auth.RequireAuth(authCfg))
	{
		v1.POST("/inscriptions", h.StartInscription)
		v1.PUT("/inscriptions/finish", h.FinishInscription)
		v1.GET("/inscriptions/:username", h.GetInscription)
		v1.DELETE("/inscriptions/:username", h.DeleteInscription)

		v1.POST("/transactions", h.AuthorizeTransaction)
		v1.GET("/transactions/:buy_order", h.GetTransaction)
		v1.GET("/transactions/:buy_order/status", h.TransactionStatus)
		v1.POST("/transactions/:buy_order/refunds", h.RefundTransaction)
		v1.PUT("/transactions/capture", h.CaptureTransaction)

		v1.GET("/users/:username/transactions", h.TransactionHistory)

		v1.GET("/events", h.EventsPoll)
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", telemetry.MetricsHandler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
