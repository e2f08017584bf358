package reminders

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/clients/expo"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// fakeScheduleRepo keeps schedules in memory and mirrors the real repo's
// claim semantics on last_fired_minute.
type fakeScheduleRepo struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*types.Schedule
}

func newFakeScheduleRepo(schedules ...*types.Schedule) *fakeScheduleRepo {
	r := &fakeScheduleRepo{schedules: make(map[uuid.UUID]*types.Schedule)}
	for _, s := range schedules {
		r.schedules[s.ID] = s
	}
	return r
}

func (r *fakeScheduleRepo) Create(_ context.Context, _ *gorm.DB, schedules []*types.Schedule) ([]*types.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schedules {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		r.schedules[s.ID] = s
	}
	return schedules, nil
}

func (r *fakeScheduleRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Schedule
	for _, id := range ids {
		if s, ok := r.schedules[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) ListByPatient(_ context.Context, _ *gorm.DB, patientID uuid.UUID) ([]*types.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Schedule
	for _, s := range r.schedules {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) List(_ context.Context, _ *gorm.DB) ([]*types.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Schedule
	for _, s := range r.schedules {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeScheduleRepo) ListActive(_ context.Context, _ *gorm.DB) ([]*types.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Schedule
	for _, s := range r.schedules {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) Save(_ context.Context, _ *gorm.DB, schedule *types.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[schedule.ID] = schedule
	return nil
}

func (r *fakeScheduleRepo) Disable(_ context.Context, _ *gorm.DB, scheduleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.schedules[scheduleID]; ok {
		s.Active = false
	}
	return nil
}

func (r *fakeScheduleRepo) ClaimFire(_ context.Context, _ *gorm.DB, scheduleID uuid.UUID, minuteKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[scheduleID]
	if !ok {
		return false, nil
	}
	if s.LastFiredMinute != nil && *s.LastFiredMinute == minuteKey {
		return false, nil
	}
	s.LastFiredMinute = &minuteKey
	return true, nil
}

type fakeTargetRepo struct {
	targets []*types.NotificationTarget
	errFor  map[uuid.UUID]error // user id -> lookup error
}

func (r *fakeTargetRepo) Upsert(_ context.Context, _ *gorm.DB, target *types.NotificationTarget) error {
	r.targets = append(r.targets, target)
	return nil
}

func (r *fakeTargetRepo) ListByUserIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID) ([]*types.NotificationTarget, error) {
	want := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		if err := r.errFor[id]; err != nil {
			return nil, err
		}
		want[id] = true
	}
	var out []*types.NotificationTarget
	for _, t := range r.targets {
		if want[t.UserID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTargetRepo) DeleteByToken(_ context.Context, _ *gorm.DB, userID uuid.UUID, pushToken string) error {
	var kept []*types.NotificationTarget
	for _, t := range r.targets {
		if t.UserID == userID && t.PushToken == pushToken {
			continue
		}
		kept = append(kept, t)
	}
	r.targets = kept
	return nil
}

type fakeUserRepo struct {
	users []*types.User
}

func (r *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, users []*types.User) ([]*types.User, error) {
	r.users = append(r.users, users...)
	return users, nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*types.User
	for _, u := range r.users {
		if want[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetByEmails(_ context.Context, _ *gorm.DB, emails []string) ([]*types.User, error) {
	want := make(map[string]bool, len(emails))
	for _, e := range emails {
		want[e] = true
	}
	var out []*types.User
	for _, u := range r.users {
		if want[u.Email] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) EmailExists(_ context.Context, _ *gorm.DB, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) ListByRole(_ context.Context, _ *gorm.DB, role string) ([]*types.User, error) {
	var out []*types.User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeTransport records every batch and can fail selected tokens or whole
// batches.
type fakeTransport struct {
	mu         sync.Mutex
	batches    [][]expo.Message
	maxBatch   int
	failTokens map[string]string // token -> error detail
	batchErr   error
}

func newFakeTransport(maxBatch int) *fakeTransport {
	return &fakeTransport{maxBatch: maxBatch, failTokens: make(map[string]string)}
}

func (t *fakeTransport) SendBatch(_ context.Context, messages []expo.Message) ([]expo.Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(messages) > t.maxBatch {
		return nil, fmt.Errorf("batch of %d exceeds cap %d", len(messages), t.maxBatch)
	}
	t.batches = append(t.batches, messages)
	if t.batchErr != nil {
		return nil, t.batchErr
	}
	tickets := make([]expo.Ticket, 0, len(messages))
	for _, m := range messages {
		if detail, ok := t.failTokens[m.To]; ok {
			tickets = append(tickets, expo.Ticket{To: m.To, Status: expo.TicketError, Detail: detail})
			continue
		}
		tickets = append(tickets, expo.Ticket{To: m.To, ID: uuid.NewString(), Status: expo.TicketOK})
	}
	return tickets, nil
}

func (t *fakeTransport) MaxBatchSize() int { return t.maxBatch }

func (t *fakeTransport) sentMessages() []expo.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []expo.Message
	for _, b := range t.batches {
		out = append(out, b...)
	}
	return out
}
