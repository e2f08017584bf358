package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aymarr/mediguardian-backend/internal/clients/expo"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

// VerificationOutcome is a definitive verdict fed back into the escalation
// counter. Cancelled or inconclusive attempts never advance it.
type VerificationOutcome string

const (
	OutcomeMatch   VerificationOutcome = "match"
	OutcomeNoMatch VerificationOutcome = "no_match"
)

// EscalationAction describes one fired escalation: the failure streak crossed
// the threshold and caregivers were notified.
type EscalationAction struct {
	ScheduleID     uuid.UUID `json:"schedule_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PatientName    string    `json:"patient_name"`
	MedicationName string    `json:"medication_name"`
	FailureCount   int64     `json:"failure_count"`
	NotifiedCount  int       `json:"notified_count"`
}

// failureKey scopes the counter to one schedule and one calendar day in the
// coordinator's zone, so streaks never leak across days or schedules.
func (c *Coordinator) failureKey(scheduleID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("verify_fail:%s:%s", scheduleID, now.In(c.loc).Format("2006-01-02"))
}

// RecordVerificationOutcome advances the failure counter on NoMatch and
// resets it on Match. Crossing the threshold fires exactly one escalation:
// the counter is reset as part of firing, so a continuing streak must build
// back up before it can fire again. Match additionally sends caregivers an
// informational confirmation. Push delivery problems are logged, never
// returned; the verification flow must not fail because a notification did.
func (c *Coordinator) RecordVerificationOutcome(ctx context.Context, scheduleID uuid.UUID, outcome VerificationOutcome) (*EscalationAction, error) {
	schedules, err := c.sched.GetByIDs(ctx, nil, []uuid.UUID{scheduleID})
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("%w: schedule %s", pkgerrors.ErrNotFound, scheduleID)
	}
	schedule := schedules[0]
	key := c.failureKey(scheduleID, time.Now())

	switch outcome {
	case OutcomeMatch:
		if err := c.counters.Reset(ctx, key); err != nil {
			c.log.Warn("failure counter reset failed", "schedule_id", scheduleID, "error", err)
		}
		c.notifyCaregivers(ctx, schedule, c.patientName(ctx, schedule.PatientID), "confirmation", 0)
		return nil, nil

	case OutcomeNoMatch:
		count, err := c.counters.Increment(ctx, key, c.counterTTL)
		if err != nil {
			// Counter outage must not break verification; the streak just
			// pauses until the store recovers.
			c.log.Error("failure counter increment failed", "schedule_id", scheduleID, "error", err)
			return nil, nil
		}
		if count != c.threshold {
			return nil, nil
		}
		if err := c.counters.Reset(ctx, key); err != nil {
			c.log.Warn("failure counter reset failed", "schedule_id", scheduleID, "error", err)
		}
		action := c.escalate(ctx, schedule, count)
		return action, nil

	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", pkgerrors.ErrInvalidArgument, outcome)
	}
}

// escalate notifies every caregiver about the failure streak.
func (c *Coordinator) escalate(ctx context.Context, schedule *types.Schedule, count int64) *EscalationAction {
	action := &EscalationAction{
		ScheduleID:     schedule.ID,
		PatientID:      schedule.PatientID,
		MedicationName: schedule.MedicationName,
		FailureCount:   count,
	}
	action.PatientName = c.patientName(ctx, schedule.PatientID)
	action.NotifiedCount = c.notifyCaregivers(ctx, schedule, action.PatientName, "escalation", count)
	c.log.Info("escalation fired",
		"schedule_id", schedule.ID,
		"patient_id", schedule.PatientID,
		"failure_count", count,
		"notified", action.NotifiedCount,
	)
	return action
}

func (c *Coordinator) patientName(ctx context.Context, patientID uuid.UUID) string {
	patients, err := c.users.GetByIDs(ctx, nil, []uuid.UUID{patientID})
	if err != nil || len(patients) == 0 {
		c.log.Warn("patient lookup failed", "patient_id", patientID, "error", err)
		return ""
	}
	return patients[0].Name
}

// notifyCaregivers fans a message out to every caregiver-role user's devices.
// Returns the number of messages delivered; failures are collected and logged
// per target.
func (c *Coordinator) notifyCaregivers(ctx context.Context, schedule *types.Schedule, patientName, kind string, count int64) int {
	caregivers, err := c.users.ListByRole(ctx, nil, types.RoleCaregiver)
	if err != nil {
		c.log.Warn("caregiver lookup failed", "schedule_id", schedule.ID, "error", err)
		return 0
	}
	if len(caregivers) == 0 {
		return 0
	}

	ids := make([]uuid.UUID, 0, len(caregivers))
	for _, cg := range caregivers {
		ids = append(ids, cg.ID)
	}
	targets, err := c.targets.ListByUserIDs(ctx, nil, ids)
	if err != nil {
		c.log.Warn("caregiver target lookup failed", "schedule_id", schedule.ID, "error", err)
		return 0
	}

	var title, body string
	data := map[string]any{
		"scheduleId":     schedule.ID.String(),
		"patientId":      schedule.PatientID.String(),
		"patientName":    patientName,
		"medicationName": schedule.MedicationName,
	}
	switch kind {
	case "escalation":
		title = "Medication Alert"
		body = fmt.Sprintf("%s failed verification for %s %d times", patientName, schedule.MedicationName, count)
		data["type"] = "escalation"
		data["failureCount"] = count
	default:
		title = "Medication Confirmed"
		body = fmt.Sprintf("%s verified their dose of %s", patientName, schedule.MedicationName)
		data["type"] = "confirmation"
	}

	var messages []expo.Message
	for _, t := range targets {
		if !expo.IsPushToken(t.PushToken) {
			continue
		}
		messages = append(messages, expo.Message{
			To:       t.PushToken,
			Title:    title,
			Body:     body,
			Sound:    "default",
			Priority: "high",
			Data:     data,
		})
	}
	if len(messages) == 0 {
		return 0
	}
	sent, failed := c.sendChunked(ctx, messages)
	for _, f := range failed {
		c.log.Warn("caregiver notification failed", "schedule_id", schedule.ID, "push_token", f.Token, "detail", f.Detail)
	}
	return sent
}
