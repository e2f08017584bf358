package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/aymarr/mediguardian-backend/internal/http/handlers"
	httpMW "github.com/aymarr/mediguardian-backend/internal/http/middleware"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	AuthHandler     *httpH.AuthHandler
	UserHandler     *httpH.UserHandler
	PillHandler     *httpH.PillHandler
	VerifyHandler   *httpH.VerifyHandler
	ScheduleHandler *httpH.ScheduleHandler
	PushHandler     *httpH.PushHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// The otel span must exist before the trace middleware reads its context.
	r.Use(otelgin.Middleware("mediguardian"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.GET("/users", cfg.UserHandler.List)
		}

		if cfg.PillHandler != nil {
			protected.POST("/pills", cfg.PillHandler.Register)
			protected.GET("/pills", cfg.PillHandler.List)
			protected.GET("/pills/:id", cfg.PillHandler.Get)
		}

		if cfg.VerifyHandler != nil {
			protected.POST("/verify", cfg.VerifyHandler.Verify)
		}

		if cfg.ScheduleHandler != nil {
			protected.POST("/schedules", cfg.ScheduleHandler.Create)
			protected.GET("/schedules", cfg.ScheduleHandler.List)
			protected.PATCH("/schedules/:id", cfg.ScheduleHandler.Update)
			protected.DELETE("/schedules/:id", cfg.ScheduleHandler.Delete)
		}

		if cfg.PushHandler != nil {
			protected.POST("/push/register", cfg.PushHandler.Register)
			protected.DELETE("/push/register", cfg.PushHandler.Unregister)
			protected.POST("/push/test", cfg.PushHandler.SendTest)
		}
	}

	return r
}
