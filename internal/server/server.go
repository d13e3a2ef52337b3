package server

import (
	"context"
	"net/http"

	"becard/internal/account"
	"becard/internal/auth"
	"becard/internal/card"
	"becard/internal/config"
	"becard/internal/dispense"
	"becard/internal/loyalty"
	"becard/internal/pricing"
	"becard/internal/wallet"

	"github.com/gin-gonic/gin"
)

// Handlers groups the domain handlers mounted by the router.
type Handlers struct {
	Accounts *account.Handler
	Loyalty  *loyalty.Handler
	Wallets  *wallet.Handler
	Pricing  *pricing.Handler
	Cards    *card.Handler
	Dispense *dispense.Handler
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, h Handlers) *Server {
	router := NewRouter(cfg, h)
	return &Server{
		router: router,
		http: &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		},
	}
}

func NewRouter(cfg *config.Config, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	authenticate := auth.AuthMiddleware(cfg.JWTSecret)
	limit := RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	protected := router.Group("/")
	protected.Use(authenticate, limit)
	{
		protected.GET("/me", h.Accounts.GetMe)
		protected.GET("/loyalty/balance", h.Loyalty.GetBalance)

		protected.GET("/wallet", h.Wallets.GetBalance)
		protected.POST("/wallet/topup", h.Wallets.TopUp)
		protected.GET("/wallet/transactions", h.Wallets.ListTransactions)

		protected.POST("/pricing/calculate", h.Pricing.Calculate)
		protected.POST("/cards/lookup", h.Cards.Lookup)
		protected.POST("/sales/:saleID/claim", h.Dispense.ClaimSale)

		protected.POST("/device/sessions", h.Dispense.CreateSession)
		protected.POST("/device/sessions/:sessionID/complete", h.Dispense.CompleteSession)
	}

	staff := router.Group("/")
	staff.Use(authenticate, auth.RequireStaff(), limit)
	{
		staff.POST("/cards/bind", h.Cards.Bind)
		staff.POST("/cards/issue-anonymous", h.Cards.IssueAnonymous)
		staff.POST("/cards/:cardID/topup", h.Cards.TopUp)
		staff.POST("/payments/confirm", h.Dispense.ConfirmPayment)
	}

	return router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Idempotency-Key, accept, origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
