package router

import (
	"net/http"
	"time"

	"ambassador-ledger/config"
	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/events"
	"ambassador-ledger/internal/handler"
	"ambassador-ledger/internal/middleware"
	"ambassador-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the process-level collaborators built in main.
type Deps struct {
	Publisher events.Publisher
	Redis     *redis.Client // nil selects in-memory rate limiting
	Log       *zap.Logger
}

func newLimiter(d Deps, name string, limit int, window time.Duration) middleware.Limiter {
	if d.Redis != nil {
		return middleware.NewRedisRateLimiter(d.Redis, name, limit, window)
	}
	return middleware.NewInMemoryRateLimiter(limit, window)
}

func Setup(cfg *config.Config, db *gorm.DB, d Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(newLimiter(d, "global", cfg.RateLimit.Requests, cfg.RateLimit.Window), middleware.ByIP, d.Log))

	// Services
	repos := service.NewRepos(db)
	notifSvc := service.NewNotificationService(repos)
	walletSvc := service.NewWalletService(repos, d.Log)
	consumptionSvc := service.NewConsumptionService(db, repos, notifSvc, d.Log)
	withdrawalSvc := service.NewWithdrawalService(db, repos, notifSvc, consumptionSvc, d.Publisher, d.Log)
	settingsSvc := service.NewSettingsService(repos, d.Log)

	// Handlers
	walletHandler := handler.NewWalletHandler(walletSvc, d.Log)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalSvc, d.Log)
	consumptionHandler := handler.NewConsumptionHandler(consumptionSvc, d.Log)
	settingsHandler := handler.NewSettingsHandler(settingsSvc, d.Log)
	notificationHandler := handler.NewNotificationHandler(notifSvc, d.Log)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	authed := api.Group("")
	authed.Use(middleware.AuthRequired(&cfg.JWT))

	amb := authed.Group("/ambassador")
	{
		amb.GET("/wallet", walletHandler.Get)
		amb.POST("/wallet/terms", walletHandler.AcceptTerms)
		amb.GET("/floors", walletHandler.Floors)
		amb.POST("/withdraw",
			middleware.RateLimit(newLimiter(d, "withdraw", cfg.RateLimit.WithdrawRequests, cfg.RateLimit.WithdrawWindow), middleware.ByUser, d.Log),
			withdrawalHandler.Create)
		amb.GET("/withdrawals", withdrawalHandler.ListMine)
		amb.GET("/consumptions", consumptionHandler.ListMine)
	}

	me := authed.Group("/me")
	{
		me.GET("/notifications", notificationHandler.List)
		me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
	}

	admin := authed.Group("/admin/ambassador")
	admin.Use(middleware.RequireRole(domain.AdminRoles...))
	{
		admin.GET("/withdrawals", withdrawalHandler.AdminList)
		admin.GET("/withdrawals/:id", withdrawalHandler.AdminGet)
		admin.POST("/withdrawals/:id/review", middleware.RequireRole(domain.AmbassadorReviewRoles...), withdrawalHandler.Review)
		admin.POST("/withdrawals/:id/complete", middleware.RequireRole(domain.FinanceRoles...), withdrawalHandler.Complete)
		admin.GET("/consumptions", consumptionHandler.AdminList)
		admin.POST("/consumptions", middleware.RequireRole(domain.AmbassadorReviewRoles...), consumptionHandler.Redeem)
		admin.GET("/settings", settingsHandler.Get)
		admin.PUT("/settings", middleware.RequireRole(domain.RoleSuperAdmin), settingsHandler.Update)
	}

	return r
}
