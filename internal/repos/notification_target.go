package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

type NotificationTargetRepo interface {
	// Upsert keys on (user_id, push_token); a re-registration refreshes
	// device_info in place so retries from mobile clients never duplicate rows.
	Upsert(ctx context.Context, tx *gorm.DB, target *types.NotificationTarget) error
	ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.NotificationTarget, error)
	DeleteByToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pushToken string) error
}

type notificationTargetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationTargetRepo(db *gorm.DB, baseLog *logger.Logger) NotificationTargetRepo {
	repoLog := baseLog.With("repo", "NotificationTargetRepo")
	return &notificationTargetRepo{db: db, log: repoLog}
}

func (nr *notificationTargetRepo) Upsert(ctx context.Context, tx *gorm.DB, target *types.NotificationTarget) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "push_token"}},
			DoUpdates: clause.AssignmentColumns([]string{"device_info", "updated_at"}),
		}).
		Create(target).Error
}

func (nr *notificationTargetRepo) ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.NotificationTarget, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	var results []*types.NotificationTarget
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (nr *notificationTargetRepo) DeleteByToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, pushToken string) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	return transaction.WithContext(ctx).
		Where("user_id = ? AND push_token = ?", userID, pushToken).
		Delete(&types.NotificationTarget{}).Error
}
