package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/internal/handler"
	"github.com/noah-isme/chilahati-archive-api/internal/middleware"
	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/service"
	"github.com/noah-isme/chilahati-archive-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/chilahati-archive-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/chilahati-archive-api/pkg/middleware/requestid"
	"github.com/noah-isme/chilahati-archive-api/pkg/ratelimit"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Archive    *handler.ArchiveHandler
	Public     *handler.PublicHandler
	Search     *handler.SearchHandler
	Media      *handler.MediaHandler
	Contribute *handler.ContributeHandler
	Pages      *handler.PagesHandler
	Metrics    *handler.MetricsHandler
}

// Options configures cross-cutting middleware.
type Options struct {
	APIPrefix      string
	CookieName     string
	AllowedOrigins []string
	AllowAnyOrigin bool
	EnableDocs     bool
	Sessions       middleware.TokenValidator
	Limiter        ratelimit.Limiter
	RateLimit      int
	Metrics        *service.MetricsService
	Audit          middleware.AuditRecorder
	Logger         *zap.Logger
}

// New builds the gin engine with every API route and the page fallback.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(opts.AllowedOrigins, opts.AllowAnyOrigin))
	r.Use(middleware.Metrics(opts.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	session := middleware.Session(opts.Sessions, opts.CookieName)
	optionalSession := middleware.OptionalSession(opts.Sessions, opts.CookieName)
	throttle := middleware.RateLimit(opts.Limiter, "auth", opts.RateLimit, opts.Metrics)

	api := r.Group(opts.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/register", throttle, h.Auth.Register)
	auth.GET("/verify/:token", h.Auth.Verify)
	auth.POST("/login", throttle, h.Auth.Login)
	auth.POST("/logout", optionalSession, h.Auth.Logout)
	auth.GET("/session", session, h.Auth.Session)
	auth.POST("/forgot-password", throttle, h.Auth.ForgotPassword)
	auth.POST("/reset-password/:token", throttle, h.Auth.ResetPassword)

	user := api.Group("/user", session)
	user.POST("/change-password", h.User.ChangePassword)
	user.POST("/update-username", h.User.UpdateUsername)
	user.POST("/delete-account", h.User.DeleteAccount)

	api.POST("/contribute", session, h.Contribute.Submit)

	api.GET("/categories", h.Public.Categories)
	api.GET("/archive/:category", h.Public.Category)
	api.GET("/archive/:category/:subType", h.Public.SubType)
	api.GET("/entry/:slug", h.Public.Entry)
	api.GET("/search", h.Search.Search)
	api.GET("/media/:id", h.Media.Serve)

	admin := api.Group("/admin", session, middleware.RequireStaff())
	admin.POST("/add", h.Archive.Create)
	admin.GET("/content-management", h.Archive.ContentManagement)
	admin.GET("/content-management/export",
		middleware.Audit(opts.Audit, opts.Logger, models.AuditActionArchiveExport, "archive"),
		h.Archive.Export)
	admin.POST("/media", h.Media.Upload)
	admin.GET("/:id", h.Archive.Get)
	admin.PUT("/:id", h.Archive.Update)
	admin.DELETE("/:id", h.Archive.Delete)

	r.NoRoute(middleware.PageGate(opts.Sessions, opts.CookieName), h.Pages.Serve)

	return r
}
