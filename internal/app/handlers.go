package app

import (
	httpH "github.com/aymarr/mediguardian-backend/internal/http/handlers"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Pill     *httpH.PillHandler
	Verify   *httpH.VerifyHandler
	Schedule *httpH.ScheduleHandler
	Push     *httpH.PushHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Auth:     httpH.NewAuthHandler(s.Auth),
		User:     httpH.NewUserHandler(s.User),
		Pill:     httpH.NewPillHandler(s.Pill),
		Verify:   httpH.NewVerifyHandler(s.Verification),
		Schedule: httpH.NewScheduleHandler(s.Schedule),
		Push:     httpH.NewPushHandler(s.Notification),
	}
}
