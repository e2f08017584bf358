package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aymarr/mediguardian-backend/internal/clients/extractor"
	"github.com/aymarr/mediguardian-backend/internal/modules/reminders"
	"github.com/aymarr/mediguardian-backend/internal/modules/verification"
	"github.com/aymarr/mediguardian-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/repos"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

type VerifyInput struct {
	Image []byte
	// ScheduleID ties the attempt to a dose; its expectation and the
	// escalation counter both key off it.
	ScheduleID     *uuid.UUID
	ExpectedPillID *uuid.UUID
	ExpectedName   string
}

type VerifyResult struct {
	Verdict    verification.Verdict        `json:"verdict"`
	Escalation *reminders.EscalationAction `json:"escalation,omitempty"`
}

type VerificationService interface {
	Verify(ctx context.Context, caller ctxutil.RequestData, in VerifyInput) (*VerifyResult, error)
}

// OutcomeRecorder is the slice of the dispatch coordinator the verification
// flow needs.
type OutcomeRecorder interface {
	RecordVerificationOutcome(ctx context.Context, scheduleID uuid.UUID, outcome reminders.VerificationOutcome) (*reminders.EscalationAction, error)
}

type verificationService struct {
	log       *logger.Logger
	extract   extractor.Client
	pillRepo  repos.PillRepo
	schedRepo repos.ScheduleRepo
	engine    *verification.Engine
	coord     OutcomeRecorder
}

func NewVerificationService(
	baseLog *logger.Logger,
	extract extractor.Client,
	pillRepo repos.PillRepo,
	schedRepo repos.ScheduleRepo,
	engine *verification.Engine,
	coord OutcomeRecorder,
) VerificationService {
	return &verificationService{
		log:       baseLog.With("service", "VerificationService"),
		extract:   extract,
		pillRepo:  pillRepo,
		schedRepo: schedRepo,
		engine:    engine,
		coord:     coord,
	}
}

func (vs *verificationService) Verify(ctx context.Context, caller ctxutil.RequestData, in VerifyInput) (*VerifyResult, error) {
	if len(in.Image) == 0 {
		return nil, fmt.Errorf("%w: image required", pkgerrors.ErrInvalidArgument)
	}

	vctx := verification.Context{
		ExpectedPillID: in.ExpectedPillID,
		ExpectedName:   in.ExpectedName,
	}
	ownerID := caller.UserID

	if in.ScheduleID != nil {
		schedules, err := vs.schedRepo.GetByIDs(ctx, nil, []uuid.UUID{*in.ScheduleID})
		if err != nil {
			return nil, fmt.Errorf("load schedule: %w", err)
		}
		if len(schedules) == 0 {
			return nil, fmt.Errorf("%w: schedule %s", pkgerrors.ErrNotFound, *in.ScheduleID)
		}
		schedule := schedules[0]
		if caller.Role != ctxutil.RoleCaregiver && schedule.PatientID != caller.UserID {
			return nil, fmt.Errorf("%w: not your schedule", pkgerrors.ErrForbidden)
		}
		// The schedule's expectation takes precedence over request hints.
		if schedule.PillID != nil {
			vctx.ExpectedPillID = schedule.PillID
		}
		if vctx.ExpectedPillID == nil && vctx.ExpectedName == "" {
			vctx.ExpectedName = schedule.MedicationName
		}
		ownerID = schedule.PatientID
	}
	vctx.OwnerID = &ownerID

	probe, err := vs.extract.Extract(ctx, in.Image)
	if err != nil {
		return nil, fmt.Errorf("extract probe: %w", err)
	}

	candidates, err := vs.loadCandidates(ctx, vctx)
	if err != nil {
		return nil, err
	}

	verdict := vs.engine.Decide(probe, candidates, vctx)
	res := &VerifyResult{Verdict: verdict}

	// Only definitive verdicts touch the escalation counter; an expectation
	// that was never registered is a setup problem, not a failed dose.
	if in.ScheduleID != nil {
		switch verdict.Kind {
		case verification.VerdictMatch:
			action, err := vs.coord.RecordVerificationOutcome(ctx, *in.ScheduleID, reminders.OutcomeMatch)
			if err != nil {
				vs.log.Warn("record match outcome failed", "schedule_id", *in.ScheduleID, "error", err)
			} else {
				res.Escalation = action
			}
		case verification.VerdictNoMatch:
			action, err := vs.coord.RecordVerificationOutcome(ctx, *in.ScheduleID, reminders.OutcomeNoMatch)
			if err != nil {
				vs.log.Warn("record no-match outcome failed", "schedule_id", *in.ScheduleID, "error", err)
			} else {
				res.Escalation = action
			}
		}
	}

	vs.log.Info("verification decided",
		"user_id", caller.UserID,
		"verdict", verdict.Kind,
		"confidence", verdict.Confidence,
		"skipped", verdict.Skipped,
		"escalated", res.Escalation != nil,
	)
	return res, nil
}

// loadCandidates maps the stored catalog into scoring candidates. A name
// expectation narrows the query at the database; the engine re-applies the
// same restriction, so both paths classify identically. Pills whose stored
// embedding fails to decode are dropped here and logged; the engine separately
// counts vectors it cannot compare to the probe.
func (vs *verificationService) loadCandidates(ctx context.Context, vctx verification.Context) ([]verification.Candidate, error) {
	var (
		pills []*types.Pill
		err   error
	)
	if vctx.ExpectedPillID == nil && strings.TrimSpace(vctx.ExpectedName) != "" {
		pills, err = vs.pillRepo.ListByNameFold(ctx, nil, vctx.ExpectedName)
	} else {
		pills, err = vs.pillRepo.List(ctx, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	candidates := make([]verification.Candidate, 0, len(pills))
	for _, p := range pills {
		vec, err := p.Vector()
		if err != nil {
			vs.log.Warn("undecodable embedding", "pill_id", p.ID, "error", err)
			continue
		}
		candidates = append(candidates, verification.Candidate{
			ID:      p.ID,
			Name:    p.Name,
			OwnerID: p.OwnerID,
			Vector:  vec,
		})
	}
	return candidates, nil
}
