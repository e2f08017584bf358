package app

import (
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/repos"
)

type Repos struct {
	User               repos.UserRepo
	Pill               repos.PillRepo
	Schedule           repos.ScheduleRepo
	NotificationTarget repos.NotificationTargetRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:               repos.NewUserRepo(db, log),
		Pill:               repos.NewPillRepo(db, log),
		Schedule:           repos.NewScheduleRepo(db, log),
		NotificationTarget: repos.NewNotificationTargetRepo(db, log),
	}
}
