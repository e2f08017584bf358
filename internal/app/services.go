package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/modules/reminders"
	"github.com/aymarr/mediguardian-backend/internal/modules/verification"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/services"
)

type Services struct {
	Auth         services.AuthService
	User         services.UserService
	Pill         services.PillService
	Schedule     services.ScheduleService
	Verification services.VerificationService
	Notification services.NotificationService

	Index       *reminders.Index
	Coordinator *reminders.Coordinator
	Trigger     *reminders.Trigger
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) Services {
	log.Info("Wiring services...")

	engine := verification.NewEngine(cfg.Calibration)

	index := reminders.NewIndex(r.Schedule, cfg.ScheduleTZ, log)
	coord := reminders.NewCoordinator(r.NotificationTarget, r.User, r.Schedule, c.Push, c.Counters, reminders.CoordinatorOptions{
		EscalationThreshold: int64(cfg.EscalationThreshold),
		CounterTTL:          cfg.EscalationWindow,
		Location:            cfg.ScheduleTZ,
	}, log)
	trigger := reminders.NewTrigger(index, coord, log)

	return Services{
		Auth:         services.NewAuthService(db, log, r.User, cfg.JWTSecretKey, timeTTL(cfg.TokenTTL)),
		User:         services.NewUserService(log, r.User),
		Pill:         services.NewPillService(db, log, r.Pill, c.Extractor),
		Schedule:     services.NewScheduleService(db, log, r.Schedule, r.Pill, r.User),
		Verification: services.NewVerificationService(log, c.Extractor, r.Pill, r.Schedule, engine, coord),
		Notification: services.NewNotificationService(db, log, r.NotificationTarget, c.Push),

		Index:       index,
		Coordinator: coord,
		Trigger:     trigger,
	}
}

// timeTTL guards against a zero TokenTTL from config.
func timeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 12 * time.Hour
	}
	return d
}
