package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aymarr/mediguardian-backend/internal/clients/expo"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/repos"
)

// Coordinator owns reminder dispatch and the verification-failure escalation
// policy. Delivery problems degrade to logged partial failures; they never
// surface as errors to the verification caller.
type Coordinator struct {
	log      *logger.Logger
	targets  repos.NotificationTargetRepo
	users    repos.UserRepo
	sched    repos.ScheduleRepo
	push     expo.Transport
	counters CounterStore

	threshold  int64
	counterTTL time.Duration
	loc        *time.Location
}

type CoordinatorOptions struct {
	// EscalationThreshold is the number of consecutive failed verifications
	// (within one calendar day) that triggers a caregiver escalation.
	EscalationThreshold int64
	// CounterTTL bounds how long a failure streak survives without resolution.
	CounterTTL time.Duration
	// Location is the zone used to derive the counter's calendar day.
	Location *time.Location
}

func NewCoordinator(
	targets repos.NotificationTargetRepo,
	users repos.UserRepo,
	sched repos.ScheduleRepo,
	push expo.Transport,
	counters CounterStore,
	opts CoordinatorOptions,
	baseLog *logger.Logger,
) *Coordinator {
	if opts.EscalationThreshold <= 0 {
		opts.EscalationThreshold = 3
	}
	if opts.CounterTTL <= 0 {
		opts.CounterTTL = 24 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Coordinator{
		log:        baseLog.With("component", "DispatchCoordinator"),
		targets:    targets,
		users:      users,
		sched:      sched,
		push:       push,
		counters:   counters,
		threshold:  opts.EscalationThreshold,
		counterTTL: opts.CounterTTL,
		loc:        opts.Location,
	}
}

// FailedTarget records one token whose delivery did not complete, either
// because the push service rejected it or the whole chunk errored.
type FailedTarget struct {
	Token  string
	Detail string
}

type DispatchResult struct {
	ScheduleID uuid.UUID
	// NoTargets means the patient has no registered valid tokens; the
	// reminder is unfulfillable, not failed.
	NoTargets      bool
	Sent           int
	SkippedInvalid int
	FailedTargets  []FailedTarget
}

// DispatchReminder delivers one due reminder to every registered device of its
// patient. Malformed tokens are skipped up front; sends are chunked to the
// transport's batch cap and run concurrently.
func (c *Coordinator) DispatchReminder(ctx context.Context, due DueSchedule) (*DispatchResult, error) {
	res := &DispatchResult{ScheduleID: due.ScheduleID}

	targets, err := c.targets.ListByUserIDs(ctx, nil, []uuid.UUID{due.PatientID})
	if err != nil {
		return nil, fmt.Errorf("resolve targets: %w", err)
	}

	var messages []expo.Message
	for _, t := range targets {
		if !expo.IsPushToken(t.PushToken) {
			res.SkippedInvalid++
			c.log.Warn("skipping malformed push token", "user_id", due.PatientID, "push_token", t.PushToken)
			continue
		}
		messages = append(messages, expo.Message{
			To:       t.PushToken,
			Title:    "Medication Reminder",
			Body:     fmt.Sprintf("Time to take %s (%s)", due.MedicationName, due.ScheduledTime),
			Sound:    "default",
			Priority: "high",
			Data: map[string]any{
				"type":           "reminder",
				"scheduleId":     due.ScheduleID.String(),
				"medicationName": due.MedicationName,
				"scheduledTime":  due.ScheduledTime,
			},
		})
	}
	if len(messages) == 0 {
		res.NoTargets = true
		return res, nil
	}

	sent, failed := c.sendChunked(ctx, messages)
	res.Sent = sent
	res.FailedTargets = failed
	if len(failed) > 0 {
		c.log.Warn("reminder partially delivered",
			"schedule_id", due.ScheduleID, "sent", sent, "failed", len(failed))
	}
	return res, nil
}

// sendChunked splits messages at the transport's batch cap and sends the
// chunks concurrently. A chunk-level transport error marks every token in that
// chunk failed; other chunks proceed.
func (c *Coordinator) sendChunked(ctx context.Context, messages []expo.Message) (int, []FailedTarget) {
	size := c.push.MaxBatchSize()
	if size <= 0 {
		size = len(messages)
	}

	var (
		mu     sync.Mutex
		sent   int
		failed []FailedTarget
	)
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(messages); start += size {
		chunk := messages[start:min(start+size, len(messages))]
		g.Go(func() error {
			tickets, err := c.push.SendBatch(gctx, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				for _, m := range chunk {
					failed = append(failed, FailedTarget{Token: m.To, Detail: err.Error()})
				}
				return nil
			}
			for i, tk := range tickets {
				if tk.Status == expo.TicketOK {
					sent++
					continue
				}
				token := tk.To
				if token == "" && i < len(chunk) {
					token = chunk[i].To
				}
				failed = append(failed, FailedTarget{Token: token, Detail: tk.Detail})
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors, failures are collected
	return sent, failed
}
