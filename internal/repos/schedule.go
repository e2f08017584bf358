package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

type ScheduleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, schedules []*types.Schedule) ([]*types.Schedule, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, scheduleIDs []uuid.UUID) ([]*types.Schedule, error)
	ListByPatient(ctx context.Context, tx *gorm.DB, patientID uuid.UUID) ([]*types.Schedule, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Schedule, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Schedule, error)
	Save(ctx context.Context, tx *gorm.DB, schedule *types.Schedule) error
	Disable(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) error
	// ClaimFire atomically stamps last_fired_minute for the given calendar
	// minute. It reports false when another tick already claimed that minute,
	// which is what keeps overlapping queries from double-sending.
	ClaimFire(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID, minuteKey string) (bool, error)
}

type scheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ScheduleRepo {
	repoLog := baseLog.With("repo", "ScheduleRepo")
	return &scheduleRepo{db: db, log: repoLog}
}

func (sr *scheduleRepo) Create(ctx context.Context, tx *gorm.DB, schedules []*types.Schedule) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(schedules) == 0 {
		return []*types.Schedule{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (sr *scheduleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, scheduleIDs []uuid.UUID) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Schedule
	if len(scheduleIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", scheduleIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *scheduleRepo) ListByPatient(ctx context.Context, tx *gorm.DB, patientID uuid.UUID) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Schedule
	if err := transaction.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *scheduleRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Schedule
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *scheduleRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Schedule
	if err := transaction.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *scheduleRepo) Save(ctx context.Context, tx *gorm.DB, schedule *types.Schedule) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).Save(schedule).Error
}

func (sr *scheduleRepo) Disable(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Schedule{}).
		Where("id = ?", scheduleID).
		Update("active", false).Error
}

func (sr *scheduleRepo) ClaimFire(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID, minuteKey string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Schedule{}).
		Where("id = ? AND (last_fired_minute IS NULL OR last_fired_minute <> ?)", scheduleID, minuteKey).
		Update("last_fired_minute", minuteKey)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
