package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"csrgive.com/app/internal/config"
	"csrgive.com/app/internal/http/handlers"
	"csrgive.com/app/internal/http/handlers/admin"
	"csrgive.com/app/internal/http/middleware"
	"csrgive.com/app/internal/modules/audit"
	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/giving"
	"csrgive.com/app/internal/modules/payments"
	"csrgive.com/app/internal/modules/reports"
	"csrgive.com/app/internal/modules/users"
)

// Deps are the services built by main. Repositories are created here from db.
type Deps struct {
	Payments *payments.Service
	Webhooks *payments.WebhookService
	Giving   *giving.Service
	Archiver *donations.ReceiptArchiver
	Audit    *audit.Service
	Limiter  middleware.Limiter
}

func NewRouter(logger *slog.Logger, db *gorm.DB, cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger, "/healthz"),
		middleware.ErrorHandler(logger),
		middleware.Recovery(logger),
	)

	donationRepo := donations.NewRepo(db)

	health := handlers.NewHealthHandler(db)
	r.GET("/healthz", health.Check)

	webhooks := handlers.NewWebhookHandler(logger, deps.Payments, deps.Webhooks,
		func(provider string) string { return payments.WebhookSecret(cfg.Payment, provider) },
		cfg.Payment.WebhookTTL,
	)
	r.POST("/webhooks/:provider", webhooks.Handle)

	api := r.Group("/api")
	api.Use(middleware.Authenticate([]byte(cfg.Auth.JWTSecret), users.NewRepo(db)))

	camp := handlers.NewCampaignsHandler(campaigns.NewRepo(db), donationRepo)
	api.GET("/campaigns", camp.List)
	api.GET("/campaigns/:id", camp.Get)
	api.GET("/campaigns/:id/stats", camp.Stats)

	don := handlers.NewDonationsHandler(deps.Giving, donationRepo)
	authed := api.Group("/donations", middleware.RequireAuth())
	{
		limit := middleware.RateLimit(deps.Limiter, "donations", middleware.RateLimitByUser, logger)
		authed.POST("", limit, don.Create)
		authed.GET("", don.List)
		authed.GET("/stats", don.Stats)
		authed.GET("/:id", don.Get)
		authed.GET("/:id/receipt", don.Receipt)
	}

	adm := api.Group("/admin", middleware.RequireAdmin())
	{
		dh := admin.NewDonationsHandler(logger, deps.Giving, deps.Archiver, deps.Audit)
		adm.POST("/donations/:id/refund", dh.Refund)
		adm.POST("/donations/:id/receipt/archive", dh.ArchiveReceipt)
		adm.GET("/receipts/*key", dh.DownloadReceipt)

		rh := admin.NewReportsHandler(reports.NewService(db), deps.Audit)
		adm.GET("/reports/overview", rh.Overview)
		adm.GET("/audit", rh.AuditLog)
	}

	return r
}
