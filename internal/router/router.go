package router

import (
	"log/slog"

	"mentorly/config"
	"mentorly/internal/domain"
	"mentorly/internal/handler"
	"mentorly/internal/middleware"
	"mentorly/internal/repository"
	"mentorly/internal/service"
	"mentorly/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	DB       *gorm.DB
	Logger   *slog.Logger
	Verifier payment.Verifier
	Meetings service.MeetingService
	Events   service.EventPublisher
	// Limiters are optional; nil disables rate limiting.
	IPLimiter   *middleware.KeyedRateLimiter
	UserLimiter *middleware.KeyedRateLimiter
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Logger))
	if d.IPLimiter != nil {
		r.Use(middleware.RateLimit(d.IPLimiter))
	}

	// Services
	ledger := service.NewCreditLedger(d.DB, d.Logger)
	catalog := service.NewSessionCatalog(d.DB, d.Logger)
	gateway := service.NewPaymentGateway(d.DB, ledger, d.Verifier, cfg.Payment.Currency, d.Events, d.Logger)
	bookings := service.NewBookingOrchestrator(d.DB, catalog, ledger, d.Meetings, d.Events, d.Logger)

	// Handlers
	auditRepo := repository.NewAuditLogRepository(d.DB)
	audit := handler.NewAuditTrail(auditRepo)
	healthHandler := handler.NewHealthHandler(d.DB)
	slotHandler := handler.NewSlotHandler(catalog, audit)
	bookingHandler := handler.NewBookingHandler(bookings, audit)
	creditHandler := handler.NewCreditHandler(ledger)
	paymentHandler := handler.NewPaymentHandler(gateway, audit)
	adminHandler := handler.NewAdminHandler(ledger, auditRepo)

	r.GET("/health", healthHandler.Check)

	v1 := r.Group("/api/v1")
	v1.GET("/packages", paymentHandler.ListPackages)

	if cfg.Payment.WebhookSecret != "" {
		webhookHandler := handler.NewPaymentWebhookHandler(gateway, audit, cfg.Payment.WebhookSecret)
		v1.POST("/webhooks/payment", webhookHandler.Handle)
	}

	protected := v1.Group("")
	protected.Use(middleware.AuthRequired(&cfg.JWT))
	if d.UserLimiter != nil {
		protected.Use(middleware.RateLimit(d.UserLimiter))
	}
	{
		protected.GET("/slots", slotHandler.ListOpen)
		protected.GET("/slots/:id", slotHandler.Get)

		mentor := protected.Group("")
		mentor.Use(middleware.RequireRole(domain.RoleMentor))
		mentor.POST("/slots", slotHandler.Create)
		mentor.POST("/slots/:id/deactivate", slotHandler.Deactivate)
		mentor.GET("/me/slots", slotHandler.ListMine)

		protected.POST("/bookings", bookingHandler.Create)
		protected.GET("/bookings/:id", bookingHandler.Get)
		protected.POST("/bookings/:id/confirm", bookingHandler.Confirm)
		protected.POST("/bookings/:id/reject", bookingHandler.Reject)
		protected.POST("/bookings/:id/cancel", bookingHandler.Cancel)
		protected.POST("/bookings/:id/complete", bookingHandler.Complete)
		protected.GET("/me/bookings", bookingHandler.ListMine)

		protected.GET("/me/credits", creditHandler.GetBalance)
		protected.GET("/me/credits/ledger", creditHandler.ListLedger)

		protected.POST("/payments/prepare", paymentHandler.Prepare)
		protected.POST("/payments/complete", paymentHandler.Complete)
		protected.GET("/me/payments", paymentHandler.History)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(domain.RoleAdmin))
		admin.GET("/users/:id/credits", adminHandler.UserCredits)
		admin.GET("/ledger/reconcile", adminHandler.Reconcile)
		admin.GET("/audit/:resource/:id", adminHandler.AuditTrail)
	}

	return r
}
