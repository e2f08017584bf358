package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/repos"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

// DueSchedule is one schedule that matched the current minute and won the
// dedup claim for it.
type DueSchedule struct {
	ScheduleID     uuid.UUID
	PatientID      uuid.UUID
	MedicationName string
	ScheduledTime  string // HH:MM in the index's zone
}

// Index answers "which schedules fire right now". Matching is done on civil
// wall-clock time in a single configured zone; the claim against
// last_fired_minute makes a fire at-most-once per calendar minute even when
// ticks overlap or multiple instances run.
type Index struct {
	log  *logger.Logger
	repo repos.ScheduleRepo
	loc  *time.Location
}

func NewIndex(repo repos.ScheduleRepo, loc *time.Location, baseLog *logger.Logger) *Index {
	if loc == nil {
		loc = time.UTC
	}
	return &Index{
		log:  baseLog.With("component", "ScheduleIndex"),
		repo: repo,
		loc:  loc,
	}
}

// DueNow returns the schedules due at the minute containing now, claiming each
// one's dedup marker. Schedules that fail the claim (already fired this
// minute) are silently excluded.
func (ix *Index) DueNow(ctx context.Context, now time.Time) ([]DueSchedule, error) {
	local := now.In(ix.loc)
	hhmm := local.Format("15:04")
	weekday := int(local.Weekday())
	minuteKey := types.MinuteKey(local)

	active, err := ix.repo.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}

	var due []DueSchedule
	for _, s := range active {
		if s.TimeOfDay != hhmm {
			continue
		}
		if !weekdayAllowed(s.Weekdays(), weekday) {
			continue
		}
		claimed, err := ix.repo.ClaimFire(ctx, nil, s.ID, minuteKey)
		if err != nil {
			ix.log.Warn("fire claim failed", "schedule_id", s.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		due = append(due, DueSchedule{
			ScheduleID:     s.ID,
			PatientID:      s.PatientID,
			MedicationName: s.MedicationName,
			ScheduledTime:  s.TimeOfDay,
		})
	}
	return due, nil
}

// weekdayAllowed treats an empty restriction as every day. Weekdays use the
// time.Weekday numbering (Sunday=0).
func weekdayAllowed(days []int, weekday int) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == weekday {
			return true
		}
	}
	return false
}
