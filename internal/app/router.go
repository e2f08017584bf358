package app

import (
	internalhttp "github.com/aymarr/mediguardian-backend/internal/http"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
)

func wireRouter(log *logger.Logger, h Handlers, mw Middleware) *internalhttp.Server {
	log.Info("Wiring router...")
	return internalhttp.NewServer(internalhttp.RouterConfig{
		Log:             log,
		AuthMiddleware:  mw.Auth,
		HealthHandler:   h.Health,
		AuthHandler:     h.Auth,
		UserHandler:     h.User,
		PillHandler:     h.Pill,
		VerifyHandler:   h.Verify,
		ScheduleHandler: h.Schedule,
		PushHandler:     h.Push,
	})
}
