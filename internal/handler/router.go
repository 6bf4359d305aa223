package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/middleware"
	"github.com/noah-isme/bulletin-api/internal/service"
	"github.com/noah-isme/bulletin-api/pkg/logger"
	"github.com/noah-isme/bulletin-api/pkg/middleware/clientid"
	corsmiddleware "github.com/noah-isme/bulletin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bulletin-api/pkg/middleware/requestid"
	"github.com/noah-isme/bulletin-api/pkg/ratelimit"
)

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Public      *PublicHandler
	Editor      *EditorHandler
	Bulletins   *BulletinHandler
	Submissions *SubmissionHandler
	Templates   *TemplateHandler
	Auth        *AuthHandler
	Metrics     *MetricsHandler
}

// RouterConfig carries the cross-cutting pieces the router needs.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	TrustedProxies []string
	EnableDocs     bool
	EnableMetrics  bool
	Tokens         middleware.TokenValidator
	PublicLimiter  *ratelimit.Limiter
	StrictLimiter  *ratelimit.Limiter
	Metrics        *service.MetricsService
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with all routes.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	// Forwarding headers only count from listed proxies, so callers cannot pick their own
	// rate-limit identity.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		cfg.Logger.Warn("invalid trusted proxies, forwarding headers ignored", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(clientid.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if cfg.EnableMetrics {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	public := middleware.RateLimit(cfg.PublicLimiter, "public", cfg.Metrics)
	strict := middleware.RateLimit(cfg.StrictLimiter, "strict", cfg.Metrics)

	r.GET("/bulletin", public, h.Public.Bulletin)
	r.GET("/share/:token", public, h.Public.Share)
	r.POST("/submissions", strict, h.Submissions.Create)
	r.POST("/auth/login", strict, h.Auth.Login)

	api := r.Group(cfg.APIPrefix)

	editor := api.Group("/editor")
	{
		anonymous := editor.Group("")
		anonymous.Use(middleware.OptionalJWT(cfg.Tokens))
		anonymous.GET("/document", h.Editor.Document)
		anonymous.PUT("/draft", h.Editor.UpdateDraft)
		anonymous.DELETE("/draft", h.Editor.DiscardDraft)
		anonymous.POST("/save", h.Editor.Save)
		anonymous.POST("/consolidate", h.Editor.Consolidate)
		anonymous.GET("/defaults", h.Editor.Defaults)
		anonymous.PUT("/defaults", h.Editor.SaveDefaults)
		anonymous.GET("/terminology", h.Editor.Terminology)
		anonymous.PUT("/terminology", h.Editor.SetTerminology)

		signedIn := editor.Group("")
		signedIn.Use(middleware.JWT(cfg.Tokens))
		signedIn.GET("/offline", h.Editor.Offline)
		signedIn.POST("/offline/sync", h.Editor.SyncOffline)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(cfg.Tokens))

	auth := secured.Group("/auth")
	auth.POST("/refresh", h.Auth.Refresh)
	auth.GET("/me", h.Auth.Me)

	bulletins := secured.Group("/bulletins")
	bulletins.GET("", h.Bulletins.List)
	bulletins.GET("/:id", h.Bulletins.Get)
	bulletins.DELETE("/:id", h.Bulletins.Delete)
	bulletins.PUT("/:id/active", h.Bulletins.SetActive)
	bulletins.POST("/:id/share", h.Bulletins.Share)
	bulletins.GET("/:id/pdf", h.Bulletins.PDF)

	submissions := secured.Group("/submissions")
	submissions.GET("", h.Submissions.List)
	submissions.GET("/export", h.Submissions.Export)
	submissions.POST("/approve-group", h.Submissions.ApproveGroup)
	submissions.POST("/:id/approve", h.Submissions.Approve)
	submissions.POST("/:id/reject", h.Submissions.Reject)

	templates := secured.Group("/templates")
	templates.GET("", h.Templates.List)
	templates.POST("", h.Templates.Create)
	templates.DELETE("/active", h.Templates.Deactivate)
	templates.GET("/:id", h.Templates.Get)
	templates.PATCH("/:id", h.Templates.Rename)
	templates.DELETE("/:id", h.Templates.Delete)
	templates.POST("/:id/activate", h.Templates.Activate)

	return r
}
