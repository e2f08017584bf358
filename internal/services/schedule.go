package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/repos"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

type CreateScheduleInput struct {
	PatientID      uuid.UUID
	PillID         *uuid.UUID
	MedicationName string
	TimeOfDay      string
	DaysOfWeek     []int
}

// UpdateScheduleInput carries partial updates; nil fields are untouched.
type UpdateScheduleInput struct {
	MedicationName *string
	TimeOfDay      *string
	DaysOfWeek     *[]int
	PillID         *uuid.UUID
	Active         *bool
}

type ScheduleService interface {
	Create(ctx context.Context, caller ctxutil.RequestData, in CreateScheduleInput) (*types.Schedule, error)
	List(ctx context.Context, caller ctxutil.RequestData) ([]*types.Schedule, error)
	Update(ctx context.Context, caller ctxutil.RequestData, scheduleID uuid.UUID, in UpdateScheduleInput) (*types.Schedule, error)
	// Delete soft-disables; dose history is retained.
	Delete(ctx context.Context, caller ctxutil.RequestData, scheduleID uuid.UUID) error
}

type scheduleService struct {
	db        *gorm.DB
	log       *logger.Logger
	schedRepo repos.ScheduleRepo
	pillRepo  repos.PillRepo
	userRepo  repos.UserRepo
}

func NewScheduleService(db *gorm.DB, baseLog *logger.Logger, schedRepo repos.ScheduleRepo, pillRepo repos.PillRepo, userRepo repos.UserRepo) ScheduleService {
	return &scheduleService{
		db:        db,
		log:       baseLog.With("service", "ScheduleService"),
		schedRepo: schedRepo,
		pillRepo:  pillRepo,
		userRepo:  userRepo,
	}
}

// canManage enforces the write rule: caregivers, or the patient who owns the
// schedule.
func canManage(caller ctxutil.RequestData, patientID uuid.UUID) bool {
	return caller.Role == ctxutil.RoleCaregiver || caller.UserID == patientID
}

func validTimeOfDay(s string) bool {
	if _, err := time.Parse("15:04", s); err != nil {
		return false
	}
	return len(s) == 5
}

func validWeekdays(days []int) bool {
	for _, d := range days {
		if d < 0 || d > 6 {
			return false
		}
	}
	return true
}

func (ss *scheduleService) Create(ctx context.Context, caller ctxutil.RequestData, in CreateScheduleInput) (*types.Schedule, error) {
	if in.PatientID == uuid.Nil {
		in.PatientID = caller.UserID
	}
	if !canManage(caller, in.PatientID) {
		return nil, fmt.Errorf("%w: cannot create schedules for another patient", pkgerrors.ErrForbidden)
	}
	in.MedicationName = strings.TrimSpace(in.MedicationName)
	if in.MedicationName == "" {
		return nil, fmt.Errorf("%w: medication name required", pkgerrors.ErrInvalidArgument)
	}
	if !validTimeOfDay(in.TimeOfDay) {
		return nil, fmt.Errorf("%w: timeOfDay must be HH:MM", pkgerrors.ErrInvalidArgument)
	}
	if !validWeekdays(in.DaysOfWeek) {
		return nil, fmt.Errorf("%w: daysOfWeek must be 0-6", pkgerrors.ErrInvalidArgument)
	}

	patients, err := ss.userRepo.GetByIDs(ctx, nil, []uuid.UUID{in.PatientID})
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if len(patients) == 0 {
		return nil, fmt.Errorf("%w: patient %s", pkgerrors.ErrNotFound, in.PatientID)
	}

	if in.PillID != nil {
		pills, err := ss.pillRepo.GetByIDs(ctx, nil, []uuid.UUID{*in.PillID})
		if err != nil {
			return nil, fmt.Errorf("load pill: %w", err)
		}
		if len(pills) == 0 {
			return nil, fmt.Errorf("%w: pill %s", pkgerrors.ErrNotFound, *in.PillID)
		}
	}

	schedule := &types.Schedule{
		PatientID:      in.PatientID,
		PillID:         in.PillID,
		MedicationName: in.MedicationName,
		TimeOfDay:      in.TimeOfDay,
		Active:         true,
		CreatedBy:      caller.UserID,
	}
	if err := schedule.SetWeekdays(in.DaysOfWeek); err != nil {
		return nil, fmt.Errorf("encode weekdays: %w", err)
	}

	var created []*types.Schedule
	err = runTx(ctx, ss.db, func(tx *gorm.DB) error {
		var txErr error
		created, txErr = ss.schedRepo.Create(ctx, tx, []*types.Schedule{schedule})
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("store schedule: %w", err)
	}
	ss.log.Info("schedule created", "schedule_id", created[0].ID, "patient_id", in.PatientID, "time_of_day", in.TimeOfDay)
	return created[0], nil
}

func (ss *scheduleService) List(ctx context.Context, caller ctxutil.RequestData) ([]*types.Schedule, error) {
	if caller.Role == ctxutil.RoleCaregiver {
		return ss.schedRepo.List(ctx, nil)
	}
	return ss.schedRepo.ListByPatient(ctx, nil, caller.UserID)
}

func (ss *scheduleService) load(ctx context.Context, scheduleID uuid.UUID) (*types.Schedule, error) {
	schedules, err := ss.schedRepo.GetByIDs(ctx, nil, []uuid.UUID{scheduleID})
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("%w: schedule %s", pkgerrors.ErrNotFound, scheduleID)
	}
	return schedules[0], nil
}

func (ss *scheduleService) Update(ctx context.Context, caller ctxutil.RequestData, scheduleID uuid.UUID, in UpdateScheduleInput) (*types.Schedule, error) {
	schedule, err := ss.load(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !canManage(caller, schedule.PatientID) {
		return nil, fmt.Errorf("%w: cannot modify this schedule", pkgerrors.ErrForbidden)
	}

	if in.MedicationName != nil {
		name := strings.TrimSpace(*in.MedicationName)
		if name == "" {
			return nil, fmt.Errorf("%w: medication name required", pkgerrors.ErrInvalidArgument)
		}
		schedule.MedicationName = name
	}
	if in.TimeOfDay != nil {
		if !validTimeOfDay(*in.TimeOfDay) {
			return nil, fmt.Errorf("%w: timeOfDay must be HH:MM", pkgerrors.ErrInvalidArgument)
		}
		schedule.TimeOfDay = *in.TimeOfDay
		// A new time means a new firing minute; clear the old dedup marker.
		schedule.LastFiredMinute = nil
	}
	if in.DaysOfWeek != nil {
		if !validWeekdays(*in.DaysOfWeek) {
			return nil, fmt.Errorf("%w: daysOfWeek must be 0-6", pkgerrors.ErrInvalidArgument)
		}
		if err := schedule.SetWeekdays(*in.DaysOfWeek); err != nil {
			return nil, fmt.Errorf("encode weekdays: %w", err)
		}
	}
	if in.PillID != nil {
		pills, err := ss.pillRepo.GetByIDs(ctx, nil, []uuid.UUID{*in.PillID})
		if err != nil {
			return nil, fmt.Errorf("load pill: %w", err)
		}
		if len(pills) == 0 {
			return nil, fmt.Errorf("%w: pill %s", pkgerrors.ErrNotFound, *in.PillID)
		}
		schedule.PillID = in.PillID
	}
	if in.Active != nil {
		schedule.Active = *in.Active
	}

	err = runTx(ctx, ss.db, func(tx *gorm.DB) error {
		return ss.schedRepo.Save(ctx, tx, schedule)
	})
	if err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}
	return schedule, nil
}

func (ss *scheduleService) Delete(ctx context.Context, caller ctxutil.RequestData, scheduleID uuid.UUID) error {
	schedule, err := ss.load(ctx, scheduleID)
	if err != nil {
		return err
	}
	if !canManage(caller, schedule.PatientID) {
		return fmt.Errorf("%w: cannot delete this schedule", pkgerrors.ErrForbidden)
	}
	err = runTx(ctx, ss.db, func(tx *gorm.DB) error {
		return ss.schedRepo.Disable(ctx, tx, scheduleID)
	})
	if err != nil {
		return fmt.Errorf("disable schedule: %w", err)
	}
	ss.log.Info("schedule disabled", "schedule_id", scheduleID, "by", caller.UserID)
	return nil
}
