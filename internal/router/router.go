package router

import (
	"net/http"
	"time"

	"gepe/config"
	"gepe/internal/domain"
	"gepe/internal/handler"
	"gepe/internal/middleware"
	"gepe/internal/repository"
	"gepe/internal/service"
	"gepe/pkg/mercadopago"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, gateway mercadopago.Client) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	staffRepo := repository.NewNotificationEmailRepository(db)

	// Services
	mailer := service.NewResendMailer(cfg.Email)
	orderSvc := service.NewOrderService(orderRepo, userRepo, staffRepo, mailer, cfg.Orders)
	paymentSvc := service.NewPaymentService(gateway, paymentRepo, cfg.MercadoPago)
	reconcileSvc := service.NewReconcileService(gateway, orderRepo, paymentRepo, mailer)
	recoverySvc := service.NewRecoveryService(gateway, orderRepo, paymentRepo, userRepo, mailer, orderSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(userRepo, &cfg.JWT)
	orderHandler := handler.NewOrderHandler(orderSvc, orderRepo)
	productionHandler := handler.NewProductionHandler(orderSvc, orderRepo)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, paymentRepo)
	webhookHandler := handler.NewPaymentWebhookHandler(reconcileSvc)
	recoveryHandler := handler.NewRecoveryHandler(recoverySvc)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public endpoints. The webhook is unauthenticated by nature; payloads
	// are never trusted, only the payment ID is used for a server-to-server
	// fetch.
	r.POST("/auth/login", authHandler.Login)
	r.POST("/orders", orderHandler.Create)
	r.GET("/orders/by-number/:order_number", orderHandler.GetByNumber)
	r.GET("/orders/user/:email", orderHandler.ListByUser)
	r.POST("/payments/webhook", webhookHandler.Handle)
	r.POST("/payments/create-preference", paymentHandler.CreatePreference)

	// Admin endpoints.
	admin := r.Group("/")
	admin.Use(middleware.AuthRequired(&cfg.JWT), middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/orders", orderHandler.List)
		admin.GET("/orders/production", productionHandler.Board)
		admin.GET("/orders/stats/production", productionHandler.ProductionStats)
		admin.GET("/orders/stats/payments", productionHandler.PaymentStats)
		admin.GET("/orders/:id", orderHandler.GetByID)
		admin.PATCH("/orders/:id", orderHandler.Update)
		admin.PATCH("/orders/:id/production-status", productionHandler.UpdateStatus)
		admin.POST("/orders/:id/finish-production", productionHandler.Finish)
		admin.POST("/orders/sync-payment-status", recoveryHandler.ResyncOrders)

		admin.GET("/payments", paymentHandler.List)
		admin.GET("/payments/:id", paymentHandler.Detail)
		admin.POST("/payments/:id/refund", paymentHandler.Refund)
		admin.POST("/payments/sync", recoveryHandler.SyncPayments)
		// Static prefix: a second param name under /payments/:id would
		// conflict in gin's routing tree.
		admin.POST("/payments/recover-order/:gateway_payment_id", recoveryHandler.RecoverOrder)
	}

	return r
}
