package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aymarr/mediguardian-backend/internal/http/response"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
}

func NewScheduleHandler(scheduleService services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

func parseOptionalUUID(s, field string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", pkgerrors.ErrInvalidArgument, field)
	}
	return &id, nil
}

// POST /api/schedules
// body: { "patientId": "...", "pillId": "...", "medicationName": "...",
//         "timeOfDay": "HH:MM", "daysOfWeek": [0..6] }
func (sh *ScheduleHandler) Create(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		PatientID      string `json:"patientId"`
		PillID         string `json:"pillId"`
		MedicationName string `json:"medicationName"`
		TimeOfDay      string `json:"timeOfDay"`
		DaysOfWeek     []int  `json:"daysOfWeek"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMapped(c, fmt.Errorf("%w: invalid request body", pkgerrors.ErrInvalidArgument))
		return
	}

	in := services.CreateScheduleInput{
		MedicationName: req.MedicationName,
		TimeOfDay:      req.TimeOfDay,
		DaysOfWeek:     req.DaysOfWeek,
	}
	if req.PatientID != "" {
		id, err := uuid.Parse(req.PatientID)
		if err != nil {
			response.RespondMapped(c, fmt.Errorf("%w: invalid patientId", pkgerrors.ErrInvalidArgument))
			return
		}
		in.PatientID = id
	}
	pillID, err := parseOptionalUUID(req.PillID, "pillId")
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	in.PillID = pillID

	schedule, err := sh.scheduleService.Create(c.Request.Context(), rd, in)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"schedule": schedule})
}

// GET /api/schedules
func (sh *ScheduleHandler) List(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	schedules, err := sh.scheduleService.List(c.Request.Context(), rd)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"schedules": schedules})
}

// PATCH /api/schedules/:id
func (sh *ScheduleHandler) Update(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	scheduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		MedicationName *string `json:"medicationName"`
		TimeOfDay      *string `json:"timeOfDay"`
		DaysOfWeek     *[]int  `json:"daysOfWeek"`
		PillID         *string `json:"pillId"`
		Active         *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMapped(c, fmt.Errorf("%w: invalid request body", pkgerrors.ErrInvalidArgument))
		return
	}

	in := services.UpdateScheduleInput{
		MedicationName: req.MedicationName,
		TimeOfDay:      req.TimeOfDay,
		DaysOfWeek:     req.DaysOfWeek,
		Active:         req.Active,
	}
	if req.PillID != nil {
		pillID, err := parseOptionalUUID(*req.PillID, "pillId")
		if err != nil {
			response.RespondMapped(c, err)
			return
		}
		in.PillID = pillID
	}

	schedule, err := sh.scheduleService.Update(c.Request.Context(), rd, scheduleID, in)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"schedule": schedule})
}

// DELETE /api/schedules/:id
func (sh *ScheduleHandler) Delete(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	scheduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := sh.scheduleService.Delete(c.Request.Context(), rd, scheduleID); err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
