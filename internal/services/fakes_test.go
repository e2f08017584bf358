package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/clients/extractor"
	"github.com/aymarr/mediguardian-backend/internal/modules/reminders"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type memUserRepo struct {
	users []*types.User
}

func (r *memUserRepo) Create(_ context.Context, _ *gorm.DB, users []*types.User) ([]*types.User, error) {
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		r.users = append(r.users, u)
	}
	return users, nil
}

func (r *memUserRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, u := range r.users {
		for _, id := range ids {
			if u.ID == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (r *memUserRepo) GetByEmails(_ context.Context, _ *gorm.DB, emails []string) ([]*types.User, error) {
	var out []*types.User
	for _, u := range r.users {
		for _, e := range emails {
			if strings.EqualFold(u.Email, e) {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (r *memUserRepo) EmailExists(_ context.Context, _ *gorm.DB, email string) (bool, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) ListByRole(_ context.Context, _ *gorm.DB, role string) ([]*types.User, error) {
	var out []*types.User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type memPillRepo struct {
	pills []*types.Pill
}

func (r *memPillRepo) Create(_ context.Context, _ *gorm.DB, pills []*types.Pill) ([]*types.Pill, error) {
	for _, p := range pills {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		r.pills = append(r.pills, p)
	}
	return pills, nil
}

func (r *memPillRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Pill, error) {
	var out []*types.Pill
	for _, p := range r.pills {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *memPillRepo) List(_ context.Context, _ *gorm.DB) ([]*types.Pill, error) {
	return r.pills, nil
}

func (r *memPillRepo) ListByOwner(_ context.Context, _ *gorm.DB, ownerID uuid.UUID) ([]*types.Pill, error) {
	var out []*types.Pill
	for _, p := range r.pills {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPillRepo) ListByNameFold(_ context.Context, _ *gorm.DB, name string) ([]*types.Pill, error) {
	var out []*types.Pill
	for _, p := range r.pills {
		if strings.EqualFold(p.Name, name) {
			out = append(out, p)
		}
	}
	return out, nil
}

type memScheduleRepo struct {
	schedules []*types.Schedule
}

func (r *memScheduleRepo) Create(_ context.Context, _ *gorm.DB, schedules []*types.Schedule) ([]*types.Schedule, error) {
	for _, s := range schedules {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		r.schedules = append(r.schedules, s)
	}
	return schedules, nil
}

func (r *memScheduleRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Schedule, error) {
	var out []*types.Schedule
	for _, s := range r.schedules {
		for _, id := range ids {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (r *memScheduleRepo) ListByPatient(_ context.Context, _ *gorm.DB, patientID uuid.UUID) ([]*types.Schedule, error) {
	var out []*types.Schedule
	for _, s := range r.schedules {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memScheduleRepo) List(_ context.Context, _ *gorm.DB) ([]*types.Schedule, error) {
	return r.schedules, nil
}

func (r *memScheduleRepo) ListActive(_ context.Context, _ *gorm.DB) ([]*types.Schedule, error) {
	var out []*types.Schedule
	for _, s := range r.schedules {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memScheduleRepo) Save(_ context.Context, _ *gorm.DB, schedule *types.Schedule) error {
	for i, s := range r.schedules {
		if s.ID == schedule.ID {
			r.schedules[i] = schedule
			return nil
		}
	}
	r.schedules = append(r.schedules, schedule)
	return nil
}

func (r *memScheduleRepo) Disable(_ context.Context, _ *gorm.DB, scheduleID uuid.UUID) error {
	for _, s := range r.schedules {
		if s.ID == scheduleID {
			s.Active = false
		}
	}
	return nil
}

func (r *memScheduleRepo) ClaimFire(_ context.Context, _ *gorm.DB, scheduleID uuid.UUID, minuteKey string) (bool, error) {
	for _, s := range r.schedules {
		if s.ID != scheduleID {
			continue
		}
		if s.LastFiredMinute != nil && *s.LastFiredMinute == minuteKey {
			return false, nil
		}
		s.LastFiredMinute = &minuteKey
		return true, nil
	}
	return false, nil
}

// stubExtractor returns a fixed vector regardless of input.
type stubExtractor struct {
	vector []float64
	err    error
}

func (e *stubExtractor) Extract(_ context.Context, _ []byte) ([]float64, error) {
	return e.vector, e.err
}

func (e *stubExtractor) ExtractForRegistration(_ context.Context, _ []byte) (*extractor.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &extractor.Result{Vector: e.vector, Confidence: 1.0, FeatureCount: len(e.vector)}, nil
}

// stubRecorder captures outcome recordings.
type stubRecorder struct {
	outcomes []reminders.VerificationOutcome
	action   *reminders.EscalationAction
}

func (r *stubRecorder) RecordVerificationOutcome(_ context.Context, _ uuid.UUID, outcome reminders.VerificationOutcome) (*reminders.EscalationAction, error) {
	r.outcomes = append(r.outcomes, outcome)
	return r.action, nil
}
