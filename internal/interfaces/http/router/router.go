package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/company"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/auth"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/config"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/logger"
	"github.com/simatecve/reten-facil-sub000/internal/interfaces/http/handler"
	"github.com/simatecve/reten-facil-sub000/internal/interfaces/http/middleware"
)

// Dependencies bundles everything the router wires together
type Dependencies struct {
	Config         *config.Config
	Logger         *zap.Logger
	JWTService     *auth.JWTService
	TokenBlacklist auth.TokenBlacklist

	System    *handler.SystemHandler
	Auth      *handler.AuthHandler
	Company   *handler.CompanyHandler
	Voucher   *handler.VoucherHandler
	Assistant *handler.AssistantHandler
	Billing   *handler.BillingHandler
	Admin     *handler.AdminHandler
}

// registerValidators adds Venezuelan fiscal formats to gin's binding engine
// so request payloads are rejected before they reach the services.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("rif", func(fl validator.FieldLevel) bool {
			_, err := company.NormalizeRIF(fl.Field().String())
			return err == nil
		})
	}
}

// New builds the gin engine with the full route table
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	registerValidators()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = r.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	r.Use(middleware.RequestID())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(logger.Recovery(deps.Logger))
	r.Use(middleware.Secure())

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	r.Use(middleware.CORSWithConfig(corsCfg))
	r.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(
			cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}

	jwtCfg := middleware.DefaultJWTConfig(deps.JWTService)
	jwtCfg.TokenBlacklist = deps.TokenBlacklist
	jwtCfg.Logger = deps.Logger

	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))

	api.GET("/health", deps.System.Health)

	// Login and register carry their own tighter limiter against
	// credential stuffing
	authGroup := api.Group("/auth")
	if cfg.HTTP.AuthRateLimitEnabled {
		authGroup.Use(middleware.RateLimit(middleware.NewRateLimiter(
			cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)))
	}
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.POST("/refresh", deps.Auth.Refresh)
	authGroup.POST("/logout", deps.Auth.Logout)
	authGroup.GET("/me", deps.Auth.Me)
	authGroup.PUT("/me", deps.Auth.UpdateProfile)

	operators := api.Group("/operators")
	operators.Use(middleware.RequirePermission("operators:manage"))
	operators.POST("", deps.Auth.CreateOperator)
	operators.GET("", deps.Auth.ListOperators)
	operators.DELETE("/:id", deps.Auth.RemoveOperator)

	companies := api.Group("/companies")
	companies.GET("", deps.Company.List)
	companies.GET("/:id", deps.Company.Get)
	companies.POST("", middleware.RequirePermission("companies:manage"), deps.Company.Create)
	companies.PUT("/:id", middleware.RequirePermission("companies:manage"), deps.Company.Update)
	companies.DELETE("/:id", middleware.RequirePermission("companies:manage"), deps.Company.Delete)
	companies.POST("/:id/logo", middleware.RequirePermission("companies:manage"), deps.Company.UploadLogo)

	vouchers := api.Group("/vouchers")
	vouchers.Use(middleware.RequirePermission("vouchers:view"))
	vouchers.GET("", deps.Voucher.List)
	vouchers.GET("/:id", deps.Voucher.Get)
	vouchers.GET("/:id/download", deps.Voucher.Download)

	issuing := api.Group("/vouchers")
	issuing.Use(middleware.RequirePermission("vouchers:issue"))
	issuing.POST("/drafts", deps.Voucher.StartDraft)
	issuing.GET("/drafts/:id", deps.Voucher.GetDraft)
	issuing.PUT("/drafts/:id/company", deps.Voucher.SelectCompany)
	issuing.PUT("/drafts/:id/supplier", deps.Voucher.SetSupplier)
	issuing.POST("/drafts/:id/items", deps.Voucher.AddItem)
	issuing.DELETE("/drafts/:id/items/:index", deps.Voucher.RemoveItem)
	issuing.POST("/drafts/:id/back", deps.Voucher.Back)
	issuing.POST("/drafts/:id/generate", deps.Voucher.Generate)
	issuing.POST("/:id/edit", deps.Voucher.StartEdit)
	issuing.PUT("/:id/items", deps.Voucher.UpdateItems)
	issuing.DELETE("/:id", deps.Voucher.Delete)

	assistant := api.Group("/assistant")
	assistant.Use(middleware.RequirePermission("assistant:use"))
	assistant.POST("/extract", deps.Assistant.Extract)
	assistant.POST("/chat", deps.Assistant.Chat)

	api.GET("/plans", deps.Billing.ListPlans)

	subscription := api.Group("/subscription")
	subscription.Use(middleware.RequirePermission("billing:manage_own"))
	subscription.GET("", deps.Billing.CurrentSubscription)
	subscription.POST("", deps.Billing.Subscribe)
	subscription.POST("/payment", deps.Billing.ReportPayment)

	admin := api.Group("/admin")
	adminPlans := admin.Group("/plans")
	adminPlans.Use(middleware.RequirePermission("admin:plans"))
	adminPlans.GET("", deps.Admin.ListPlans)
	adminPlans.POST("", deps.Admin.CreatePlan)
	adminPlans.PUT("/:id", deps.Admin.UpdatePlan)
	adminPlans.DELETE("/:id", deps.Admin.DeactivatePlan)

	adminSubs := admin.Group("/subscriptions")
	adminSubs.Use(middleware.RequirePermission("admin:payments"))
	adminSubs.GET("", deps.Admin.ListSubscriptions)
	adminSubs.POST("/:id/verify", deps.Admin.VerifyPayment)
	adminSubs.POST("/:id/reject", deps.Admin.RejectPayment)

	return r
}
