package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aymarr/mediguardian-backend/internal/clients/expo"
	"github.com/aymarr/mediguardian-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/repos"
	"github.com/aymarr/mediguardian-backend/internal/types"
)

type NotificationService interface {
	// RegisterTarget records a device token for the caller; re-registering
	// the same token refreshes its device metadata.
	RegisterTarget(ctx context.Context, caller ctxutil.RequestData, pushToken string, deviceInfo map[string]any) error
	UnregisterTarget(ctx context.Context, caller ctxutil.RequestData, pushToken string) error
	// SendTest pushes a throwaway message to the caller's devices.
	SendTest(ctx context.Context, caller ctxutil.RequestData) (int, error)
}

type notificationService struct {
	db         *gorm.DB
	log        *logger.Logger
	targetRepo repos.NotificationTargetRepo
	push       expo.Transport
}

func NewNotificationService(db *gorm.DB, baseLog *logger.Logger, targetRepo repos.NotificationTargetRepo, push expo.Transport) NotificationService {
	return &notificationService{
		db:         db,
		log:        baseLog.With("service", "NotificationService"),
		targetRepo: targetRepo,
		push:       push,
	}
}

func (ns *notificationService) RegisterTarget(ctx context.Context, caller ctxutil.RequestData, pushToken string, deviceInfo map[string]any) error {
	if !expo.IsPushToken(pushToken) {
		return fmt.Errorf("%w: token must look like ExponentPushToken[...]", pkgerrors.ErrInvalidArgument)
	}
	target := &types.NotificationTarget{
		UserID:    caller.UserID,
		PushToken: pushToken,
	}
	if len(deviceInfo) > 0 {
		raw, err := json.Marshal(deviceInfo)
		if err != nil {
			return fmt.Errorf("%w: bad device info", pkgerrors.ErrInvalidArgument)
		}
		target.DeviceInfo = datatypes.JSON(raw)
	}
	err := runTx(ctx, ns.db, func(tx *gorm.DB) error {
		return ns.targetRepo.Upsert(ctx, tx, target)
	})
	if err != nil {
		return fmt.Errorf("store target: %w", err)
	}
	ns.log.Info("push target registered", "user_id", caller.UserID, "push_token", pushToken)
	return nil
}

func (ns *notificationService) UnregisterTarget(ctx context.Context, caller ctxutil.RequestData, pushToken string) error {
	err := runTx(ctx, ns.db, func(tx *gorm.DB) error {
		return ns.targetRepo.DeleteByToken(ctx, tx, caller.UserID, pushToken)
	})
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	return nil
}

func (ns *notificationService) SendTest(ctx context.Context, caller ctxutil.RequestData) (int, error) {
	targets, err := ns.targetRepo.ListByUserIDs(ctx, nil, []uuid.UUID{caller.UserID})
	if err != nil {
		return 0, fmt.Errorf("resolve targets: %w", err)
	}
	var messages []expo.Message
	for _, t := range targets {
		if !expo.IsPushToken(t.PushToken) {
			continue
		}
		messages = append(messages, expo.Message{
			To:    t.PushToken,
			Title: "MediGuardian",
			Body:  "Test notification",
			Sound: "default",
			Data:  map[string]any{"type": "test"},
		})
	}
	if len(messages) == 0 {
		return 0, nil
	}
	tickets, err := ns.push.SendBatch(ctx, messages)
	if err != nil {
		return 0, fmt.Errorf("send test: %w", err)
	}
	sent := 0
	for _, tk := range tickets {
		if tk.Status == expo.TicketOK {
			sent++
		}
	}
	return sent, nil
}
