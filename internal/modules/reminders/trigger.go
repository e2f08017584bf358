package reminders

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
)

// Trigger drives the schedule index on a one-minute tick. A tick that is
// still running when the next fires causes the new one to be skipped rather
// than overlapped; the dedup claim in the index covers the missed minute if a
// later tick lands in it.
type Trigger struct {
	log   *logger.Logger
	index *Index
	coord *Coordinator

	interval time.Duration
	busy     atomic.Bool
}

func NewTrigger(index *Index, coord *Coordinator, baseLog *logger.Logger) *Trigger {
	return &Trigger{
		log:      baseLog.With("component", "ReminderTrigger"),
		index:    index,
		coord:    coord,
		interval: time.Minute,
	}
}

// Start runs the tick loop until ctx is cancelled.
func (t *Trigger) Start(ctx context.Context) {
	t.log.Info("reminder trigger started", "interval", t.interval)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("reminder trigger stopped")
			return
		case now := <-ticker.C:
			t.runTick(ctx, now)
		}
	}
}

// runTick executes one tick unless the previous one is still running, in
// which case the new one is dropped.
func (t *Trigger) runTick(ctx context.Context, now time.Time) {
	if !t.busy.CompareAndSwap(false, true) {
		t.log.Warn("tick still in progress, skipping")
		return
	}
	defer t.busy.Store(false)
	t.tick(ctx, now)
}

// tick fires every due schedule, isolating per-record failures so one bad
// dispatch cannot starve the rest of the minute.
func (t *Trigger) tick(ctx context.Context, now time.Time) {
	due, err := t.index.DueNow(ctx, now)
	if err != nil {
		t.log.Error("due-schedule query failed", "error", err)
		return
	}
	for _, d := range due {
		res, err := t.coord.DispatchReminder(ctx, d)
		if err != nil {
			t.log.Error("reminder dispatch failed", "schedule_id", d.ScheduleID, "error", err)
			continue
		}
		if res.NoTargets {
			t.log.Warn("reminder has no deliverable targets", "schedule_id", d.ScheduleID, "patient_id", d.PatientID)
			continue
		}
		t.log.Info("reminder dispatched",
			"schedule_id", d.ScheduleID,
			"sent", res.Sent,
			"failed", len(res.FailedTargets),
			"skipped_invalid", res.SkippedInvalid,
		)
	}
}
