package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/clients/extractor"
	"github.com/aymarr/mediguardian-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/repos"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

type PillService interface {
	// Register extracts a registration-grade embedding from the image and
	// stores the pill under the caller's catalog.
	Register(ctx context.Context, caller ctxutil.RequestData, name string, image []byte) (*types.Pill, error)
	List(ctx context.Context, caller ctxutil.RequestData) ([]*types.Pill, error)
	Get(ctx context.Context, caller ctxutil.RequestData, pillID uuid.UUID) (*types.Pill, error)
}

type pillService struct {
	db       *gorm.DB
	log      *logger.Logger
	pillRepo repos.PillRepo
	extract  extractor.Client
}

func NewPillService(db *gorm.DB, baseLog *logger.Logger, pillRepo repos.PillRepo, extract extractor.Client) PillService {
	return &pillService{
		db:       db,
		log:      baseLog.With("service", "PillService"),
		pillRepo: pillRepo,
		extract:  extract,
	}
}

func (ps *pillService) Register(ctx context.Context, caller ctxutil.RequestData, name string, image []byte) (*types.Pill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: pill name required", pkgerrors.ErrInvalidArgument)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image required", pkgerrors.ErrInvalidArgument)
	}

	result, err := ps.extract.ExtractForRegistration(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract registration vector: %w", err)
	}

	pill := &types.Pill{
		Name:                   name,
		OwnerID:                caller.UserID,
		FeatureCount:           result.FeatureCount,
		RegistrationConfidence: result.Confidence,
	}
	if err := pill.SetVector(result.Vector); err != nil {
		return nil, fmt.Errorf("encode vector: %w", err)
	}

	var created []*types.Pill
	err = runTx(ctx, ps.db, func(tx *gorm.DB) error {
		var txErr error
		created, txErr = ps.pillRepo.Create(ctx, tx, []*types.Pill{pill})
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("store pill: %w", err)
	}

	ps.log.Info("pill registered",
		"pill_id", created[0].ID,
		"owner_id", caller.UserID,
		"feature_count", result.FeatureCount,
		"confidence", result.Confidence,
	)
	return created[0], nil
}

func (ps *pillService) List(ctx context.Context, caller ctxutil.RequestData) ([]*types.Pill, error) {
	// Caregivers see the whole catalog; patients see their own pills.
	if caller.Role == ctxutil.RoleCaregiver {
		return ps.pillRepo.List(ctx, nil)
	}
	return ps.pillRepo.ListByOwner(ctx, nil, caller.UserID)
}

func (ps *pillService) Get(ctx context.Context, caller ctxutil.RequestData, pillID uuid.UUID) (*types.Pill, error) {
	pills, err := ps.pillRepo.GetByIDs(ctx, nil, []uuid.UUID{pillID})
	if err != nil {
		return nil, fmt.Errorf("load pill: %w", err)
	}
	if len(pills) == 0 {
		return nil, fmt.Errorf("%w: pill %s", pkgerrors.ErrNotFound, pillID)
	}
	pill := pills[0]
	if caller.Role != ctxutil.RoleCaregiver && pill.OwnerID != caller.UserID {
		return nil, fmt.Errorf("%w: not your pill", pkgerrors.ErrForbidden)
	}
	return pill, nil
}
