package reminders

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/repos"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

// countingScheduleRepo counts ListActive calls so a test can tell a dropped
// tick from one that ran and found nothing due.
type countingScheduleRepo struct {
	*fakeScheduleRepo
	listActiveCalls atomic.Int32
}

func (r *countingScheduleRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Schedule, error) {
	r.listActiveCalls.Add(1)
	return r.fakeScheduleRepo.ListActive(ctx, tx)
}

// blockingTargetRepo parks target lookups until released, holding a tick
// mid-dispatch.
type blockingTargetRepo struct {
	*fakeTargetRepo
	entered chan struct{}
	release chan struct{}
}

func (r *blockingTargetRepo) ListByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.NotificationTarget, error) {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	<-r.release
	return r.fakeTargetRepo.ListByUserIDs(ctx, tx, userIDs)
}

func newTestTrigger(sched *countingScheduleRepo, targets repos.NotificationTargetRepo, push *fakeTransport) *Trigger {
	coord := NewCoordinator(targets, &fakeUserRepo{}, sched, push, NewMemoryCounterStore(), CoordinatorOptions{}, testLogger())
	return NewTrigger(NewIndex(sched, time.UTC, testLogger()), coord, testLogger())
}

func TestTickIsolatesPerScheduleFailures(t *testing.T) {
	broken := mkSchedule(t, "08:30", nil)
	healthy := mkSchedule(t, "08:30", nil)
	sched := &countingScheduleRepo{fakeScheduleRepo: newFakeScheduleRepo(broken, healthy)}
	targets := &fakeTargetRepo{
		targets: []*types.NotificationTarget{
			{UserID: healthy.PatientID, PushToken: "ExponentPushToken[healthy]"},
		},
		errFor: map[uuid.UUID]error{broken.PatientID: errors.New("target lookup down")},
	}
	push := newFakeTransport(100)
	trg := newTestTrigger(sched, targets, push)

	// 2026-03-02 is a Monday.
	trg.runTick(context.Background(), time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC))

	sent := push.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].To != "ExponentPushToken[healthy]" {
		t.Fatalf("delivered to %q, want the healthy patient's token", sent[0].To)
	}
}

func TestRunTickDropsOverlappingTick(t *testing.T) {
	s := mkSchedule(t, "08:30", nil)
	sched := &countingScheduleRepo{fakeScheduleRepo: newFakeScheduleRepo(s)}
	targets := &blockingTargetRepo{
		fakeTargetRepo: &fakeTargetRepo{
			targets: []*types.NotificationTarget{
				{UserID: s.PatientID, PushToken: "ExponentPushToken[dev]"},
			},
		},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	trg := newTestTrigger(sched, targets, newFakeTransport(100))

	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	done := make(chan struct{})
	go func() {
		trg.runTick(context.Background(), now)
		close(done)
	}()
	<-targets.entered

	// A tick arriving while the first is mid-dispatch must be dropped
	// without even querying for due schedules.
	trg.runTick(context.Background(), now)
	if got := sched.listActiveCalls.Load(); got != 1 {
		t.Fatalf("ListActive calls while busy = %d, want 1", got)
	}

	close(targets.release)
	<-done

	// Once the slow tick finishes the guard clears and the next tick runs.
	trg.runTick(context.Background(), now.Add(time.Minute))
	if got := sched.listActiveCalls.Load(); got != 2 {
		t.Fatalf("ListActive calls after release = %d, want 2", got)
	}
}
