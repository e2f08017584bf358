package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aymarr/mediguardian-backend/internal/http/response"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/services"
)

type VerifyHandler struct {
	verificationService services.VerificationService
}

func NewVerifyHandler(verificationService services.VerificationService) *VerifyHandler {
	return &VerifyHandler{verificationService: verificationService}
}

// POST /api/verify
// body: { "image": "<base64>", "scheduleId": "...", "expectedPillId": "...",
//         "expectedName": "..." } — everything but image is optional.
func (vh *VerifyHandler) Verify(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Image          string `json:"image"`
		ScheduleID     string `json:"scheduleId"`
		ExpectedPillID string `json:"expectedPillId"`
		ExpectedName   string `json:"expectedName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMapped(c, fmt.Errorf("%w: invalid request body", pkgerrors.ErrInvalidArgument))
		return
	}
	image, err := decodeImage(req.Image)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}

	in := services.VerifyInput{Image: image, ExpectedName: req.ExpectedName}
	if req.ScheduleID != "" {
		id, err := uuid.Parse(req.ScheduleID)
		if err != nil {
			response.RespondMapped(c, fmt.Errorf("%w: invalid scheduleId", pkgerrors.ErrInvalidArgument))
			return
		}
		in.ScheduleID = &id
	}
	if req.ExpectedPillID != "" {
		id, err := uuid.Parse(req.ExpectedPillID)
		if err != nil {
			response.RespondMapped(c, fmt.Errorf("%w: invalid expectedPillId", pkgerrors.ErrInvalidArgument))
			return
		}
		in.ExpectedPillID = &id
	}

	result, err := vh.verificationService.Verify(c.Request.Context(), rd, in)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	// An unmet expectation is a soft verdict, not an HTTP failure.
	response.RespondOK(c, result)
}
