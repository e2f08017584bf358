package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/aymarr/mediguardian-backend/internal/http/response"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/services"
)

type PushHandler struct {
	notificationService services.NotificationService
}

func NewPushHandler(notificationService services.NotificationService) *PushHandler {
	return &PushHandler{notificationService: notificationService}
}

// POST /api/push/register
// body: { "pushToken": "ExponentPushToken[...]", "deviceInfo": {...} }
func (ph *PushHandler) Register(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		PushToken  string         `json:"pushToken"`
		DeviceInfo map[string]any `json:"deviceInfo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMapped(c, fmt.Errorf("%w: invalid request body", pkgerrors.ErrInvalidArgument))
		return
	}
	if err := ph.notificationService.RegisterTarget(c.Request.Context(), rd, req.PushToken, req.DeviceInfo); err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"registered": true})
}

// DELETE /api/push/register
// body: { "pushToken": "..." }
func (ph *PushHandler) Unregister(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		PushToken string `json:"pushToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMapped(c, fmt.Errorf("%w: invalid request body", pkgerrors.ErrInvalidArgument))
		return
	}
	if err := ph.notificationService.UnregisterTarget(c.Request.Context(), rd, req.PushToken); err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"unregistered": true})
}

// POST /api/push/test
func (ph *PushHandler) SendTest(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	sent, err := ph.notificationService.SendTest(c.Request.Context(), rd)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sent": sent})
}
