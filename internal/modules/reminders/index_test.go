package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aymarr/mediguardian-backend/internal/types"
)

func mkSchedule(t *testing.T, timeOfDay string, days []int) *types.Schedule {
	t.Helper()
	s := &types.Schedule{
		ID:             uuid.New(),
		PatientID:      uuid.New(),
		MedicationName: "Metformin",
		TimeOfDay:      timeOfDay,
		Active:         true,
	}
	if err := s.SetWeekdays(days); err != nil {
		t.Fatalf("SetWeekdays: %v", err)
	}
	return s
}

func TestDueNowMatchesMinute(t *testing.T) {
	s := mkSchedule(t, "08:30", nil)
	ix := NewIndex(newFakeScheduleRepo(s), time.UTC, testLogger())

	// 2026-03-02 is a Monday.
	now := time.Date(2026, 3, 2, 8, 30, 12, 0, time.UTC)
	due, err := ix.DueNow(context.Background(), now)
	if err != nil {
		t.Fatalf("DueNow: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due schedule, got %d", len(due))
	}
	if due[0].ScheduleID != s.ID || due[0].MedicationName != "Metformin" || due[0].ScheduledTime != "08:30" {
		t.Fatalf("unexpected due schedule: %+v", due[0])
	}
}

func TestDueNowRespectsWeekdayRestriction(t *testing.T) {
	// Monday(1) and Wednesday(3) only.
	s := mkSchedule(t, "08:30", []int{1, 3})
	ix := NewIndex(newFakeScheduleRepo(s), time.UTC, testLogger())

	monday := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	due, err := ix.DueNow(context.Background(), monday)
	if err != nil {
		t.Fatalf("DueNow: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected schedule due on Monday, got %d", len(due))
	}

	tuesday := monday.Add(24 * time.Hour)
	due, err = ix.DueNow(context.Background(), tuesday)
	if err != nil {
		t.Fatalf("DueNow: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected nothing due on Tuesday, got %d", len(due))
	}
}

func TestDueNowUsesConfiguredZone(t *testing.T) {
	s := mkSchedule(t, "08:30", nil)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	ix := NewIndex(newFakeScheduleRepo(s), tokyo, testLogger())

	// 23:30 UTC == 08:30 next day in Tokyo.
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	due, err := ix.DueNow(context.Background(), now)
	if err != nil {
		t.Fatalf("DueNow: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected schedule due at 08:30 Tokyo time, got %d", len(due))
	}
}

func TestDueNowFiresAtMostOncePerMinute(t *testing.T) {
	s := mkSchedule(t, "08:30", nil)
	repo := newFakeScheduleRepo(s)
	ix := NewIndex(repo, time.UTC, testLogger())

	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	first, err := ix.DueNow(context.Background(), now)
	if err != nil {
		t.Fatalf("first DueNow: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected first query to claim the fire, got %d", len(first))
	}

	// Overlapping query inside the same minute must lose the claim.
	second, err := ix.DueNow(context.Background(), now.Add(20*time.Second))
	if err != nil {
		t.Fatalf("second DueNow: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected dedup to suppress second fire, got %d", len(second))
	}

	// Next day, same minute: new minute key, fires again.
	tomorrow, err := ix.DueNow(context.Background(), now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("next-day DueNow: %v", err)
	}
	if len(tomorrow) != 1 {
		t.Fatalf("expected schedule to fire again next day, got %d", len(tomorrow))
	}
}

func TestDueNowSkipsInactive(t *testing.T) {
	s := mkSchedule(t, "08:30", nil)
	s.Active = false
	ix := NewIndex(newFakeScheduleRepo(s), time.UTC, testLogger())

	due, err := ix.DueNow(context.Background(), time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DueNow: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("inactive schedule fired: %+v", due)
	}
}
