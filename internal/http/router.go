package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/identity-backend/internal/http/handlers"
	httpMW "github.com/yungbote/identity-backend/internal/http/middleware"
	"github.com/yungbote/identity-backend/internal/observability"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	IdentityHandler *httpH.IdentityHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Identity
	if cfg.IdentityHandler != nil {
		r.POST("/identify", cfg.IdentityHandler.Identify)
		r.GET("/contacts/:id", cfg.IdentityHandler.GetContact)
		r.GET("/contacts/:id/events", cfg.IdentityHandler.ListContactEvents)
	}

	return r
}
