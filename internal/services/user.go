package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aymarr/mediguardian-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/repos"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

type UserService interface {
	Me(ctx context.Context, caller ctxutil.RequestData) (*types.User, error)
	// List is caregiver-only; caregivers need the patient roster to attach
	// schedules.
	List(ctx context.Context, caller ctxutil.RequestData, role string) ([]*types.User, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(baseLog *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		log:      baseLog.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) Me(ctx context.Context, caller ctxutil.RequestData) (*types.User, error) {
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{caller.UserID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user %s", pkgerrors.ErrNotFound, caller.UserID)
	}
	return users[0], nil
}

func (us *userService) List(ctx context.Context, caller ctxutil.RequestData, role string) ([]*types.User, error) {
	if caller.Role != ctxutil.RoleCaregiver {
		return nil, fmt.Errorf("%w: caregiver role required", pkgerrors.ErrForbidden)
	}
	switch role {
	case "", types.RolePatient, types.RoleCaregiver:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", pkgerrors.ErrInvalidArgument, role)
	}
	return us.userRepo.ListByRole(ctx, nil, role)
}
