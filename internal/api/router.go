package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/raptiye/blog-api/internal/api/handler"
	"github.com/raptiye/blog-api/internal/api/middleware"
	"github.com/raptiye/blog-api/internal/core/domain"
	"github.com/raptiye/blog-api/internal/core/password"
	"github.com/raptiye/blog-api/internal/core/ports"
	"github.com/raptiye/blog-api/internal/core/service"
	"github.com/raptiye/blog-api/internal/core/token"
	"github.com/raptiye/blog-api/internal/infrastructure/config"
)

// Dependencies carries the externally constructed collaborators so tests can
// substitute in-memory implementations. Limiter, Auditor, Audit, Mongo, Redis
// and Metrics are optional.
type Dependencies struct {
	Users   ports.UserRepository
	Audit   ports.AuditRepository
	Auditor ports.AuditRecorder
	Limiter ports.LoginLimiter
	Mongo   *mongo.Database
	Redis   *redis.Client
	Metrics *prometheus.Registry
	Logger  zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
// Role requirements are composed here, per route; the auth subsystem itself
// holds no route-to-role mapping.
func NewRouter(cfg *config.Config, deps Dependencies) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.Validator = handler.NewValidator()

	registerer := prometheus.Registerer(prometheus.DefaultRegisterer)
	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if deps.Metrics != nil {
		registerer, gatherer = deps.Metrics, deps.Metrics
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "blog",
		Registerer: registerer,
	}))

	// --- Dependencies ---
	hasher := password.NewHasher(cfg.BcryptCost)
	codec := token.NewCodec(cfg.JWTSecret, cfg.TokenTTL)
	authService, err := service.NewAuthService(deps.Users, hasher, codec, deps.Limiter, deps.Auditor)
	if err != nil {
		return nil, err
	}
	resolver := service.NewIdentityResolver(deps.Users)
	authHandler := handler.NewAuthHandler(authService)

	// Authentication runs on every request; it only decides whether a
	// principal is present. RequireRole does the rejecting.
	e.Use(middleware.Authenticate(codec, resolver, cfg.StoreTimeout, deps.Logger))

	// --- API routes ---
	g := e.Group("/api")
	g.POST("/auth/register", authHandler.Register)
	g.POST("/auth/login", authHandler.Login)
	g.GET("/auth/me", authHandler.Me, middleware.RequireRole(domain.RoleUser, domain.RoleAdmin))

	if deps.Audit != nil {
		auditHandler := handler.NewAuditHandler(deps.Audit)
		g.GET("/admin/audit", auditHandler.Recent, middleware.RequireRole(domain.RoleAdmin))
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	e.GET("/health", healthHandler.Liveness)
	if deps.Mongo != nil || deps.Redis != nil {
		readiness := handler.NewReadinessHandler(deps.Mongo, deps.Redis)
		e.GET("/health/ready", readiness.Readiness)
	}

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: gatherer,
	}))
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e, nil
}
