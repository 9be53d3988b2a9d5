package handler

import (
	"mission-rewards-ledger/internal/adapter/http/middleware"
	redisStore "mission-rewards-ledger/internal/adapter/storage/redis"
	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	CampaignSvc    ports.CampaignService
	ActionSvc      ports.ActionService
	WalletSvc      ports.WalletService
	ReportingSvc   ports.ReportingService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	Gateway        middleware.GatewayAuthConfig
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep: verifies PostgreSQL and Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- HMAC-signed gateway callbacks ---
	gatewayAuth := middleware.GatewayAuth(deps.Gateway, deps.SigSvc, deps.NonceStore, deps.Logger)
	gatewayHandler := NewGatewayHandler(deps.WalletSvc)
	gateway := v1.Group("/gateway", gatewayAuth, rl("gateway"))
	{
		gateway.POST("/deposits", gatewayHandler.Deposit)
		gateway.POST("/withdrawals/:id/settle", gatewayHandler.SettleWithdrawal)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	businessOnly := middleware.RequireRole(domain.RoleBusiness)
	userOnly := middleware.RequireRole(domain.RoleUser)

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.GET("/me", rl("reads"), walletHandler.GetWallet)
		wallets.POST("/withdrawals", rl("withdrawals"), walletHandler.RequestWithdrawal)
	}
	v1.GET("/transactions", jwtAuth, rl("reads"), walletHandler.ListTransactions)

	campaignHandler := NewCampaignHandler(deps.CampaignSvc, deps.ReportingSvc)
	campaigns := v1.Group("/campaigns", jwtAuth)
	{
		campaigns.POST("", businessOnly, rl("campaigns"), campaignHandler.Create)
		campaigns.GET("", businessOnly, rl("reads"), campaignHandler.List)
		campaigns.GET("/:id", rl("reads"), campaignHandler.Get)
		campaigns.PATCH("/:id", businessOnly, rl("campaigns"), campaignHandler.Update)
		campaigns.DELETE("/:id", businessOnly, rl("campaigns"), campaignHandler.Delete)
		campaigns.GET("/:id/missions", rl("reads"), campaignHandler.ListMissions)
		campaigns.GET("/:id/stats", businessOnly, rl("reads"), campaignHandler.GetStats)
	}

	actionHandler := NewActionHandler(deps.ActionSvc)
	v1.POST("/missions/:id/accept", jwtAuth, userOnly, rl("actions"), actionHandler.Accept)
	actions := v1.Group("/actions", jwtAuth)
	{
		actions.POST("/:id/start", userOnly, rl("actions"), actionHandler.Start)
		actions.POST("/:id/submit", userOnly, rl("actions"), actionHandler.Submit)
		actions.POST("/:id/verify", businessOnly, rl("actions"), actionHandler.Verify)
		actions.POST("/:id/reject", businessOnly, rl("actions"), actionHandler.Reject)
	}

	return r
}
