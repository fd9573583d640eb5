package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/studycards/internal/http/handlers"
	httpMW "github.com/yungbote/studycards/internal/http/middleware"
	"github.com/yungbote/studycards/internal/observability"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/proxy"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware
	ProxyHandler   *proxy.Handler
	SessionHandler *httpH.SessionHandler
	HistoryHandler *httpH.HistoryHandler
	AvatarHandler  *httpH.AvatarHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Live)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Proxy (public)
	if cfg.ProxyHandler != nil {
		cfg.ProxyHandler.Register(r)
	}

	api := r.Group("/api")
	optional := api.Group("/")
	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		optional.Use(cfg.AuthMiddleware.OptionalAuth())
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Sessions and quizzes (guests allowed)
	if cfg.SessionHandler != nil {
		optional.POST("/sessions", cfg.SessionHandler.Load)
		optional.POST("/sessions/clarify", cfg.SessionHandler.Clarify)
		optional.POST("/quizzes", cfg.SessionHandler.Quiz)
		optional.POST("/quizzes/feedback", cfg.SessionHandler.Feedback)
	}

	// History
	if cfg.HistoryHandler != nil {
		protected.GET("/history", cfg.HistoryHandler.List)
		protected.GET("/history/stream", cfg.HistoryHandler.Stream)
		protected.DELETE("/history/:id", cfg.HistoryHandler.Delete)
	}

	// Profile
	if cfg.AvatarHandler != nil {
		protected.PUT("/profile/avatar", cfg.AvatarHandler.Upload)
	}

	return r
}
