package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

// Listing order is created_at ASC everywhere so the decision engine sees a
// stable catalog order and ties break deterministically.
type PillRepo interface {
	Create(ctx context.Context, tx *gorm.DB, pills []*types.Pill) ([]*types.Pill, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, pillIDs []uuid.UUID) ([]*types.Pill, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Pill, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Pill, error)
	ListByNameFold(ctx context.Context, tx *gorm.DB, name string) ([]*types.Pill, error)
}

type pillRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPillRepo(db *gorm.DB, baseLog *logger.Logger) PillRepo {
	repoLog := baseLog.With("repo", "PillRepo")
	return &pillRepo{db: db, log: repoLog}
}

func (pr *pillRepo) Create(ctx context.Context, tx *gorm.DB, pills []*types.Pill) ([]*types.Pill, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if len(pills) == 0 {
		return []*types.Pill{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&pills).Error; err != nil {
		return nil, err
	}
	return pills, nil
}

func (pr *pillRepo) GetByIDs(ctx context.Context, tx *gorm.DB, pillIDs []uuid.UUID) ([]*types.Pill, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Pill
	if len(pillIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", pillIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *pillRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Pill, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Pill
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *pillRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Pill, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Pill
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *pillRepo) ListByNameFold(ctx context.Context, tx *gorm.DB, name string) ([]*types.Pill, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Pill
	if err := transaction.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
