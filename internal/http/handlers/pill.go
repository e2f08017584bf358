package handlers

import (
	"encoding/base64"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/aymarr/mediguardian-backend/internal/http/response"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/services"
)

type PillHandler struct {
	pillService services.PillService
}

func NewPillHandler(pillService services.PillService) *PillHandler {
	return &PillHandler{pillService: pillService}
}

// decodeImage accepts raw base64 or a data URI.
func decodeImage(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: image required", pkgerrors.ErrInvalidArgument)
	}
	if idx := indexAfterComma(s); idx > 0 {
		s = s[idx:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: image must be base64", pkgerrors.ErrInvalidArgument)
	}
	return raw, nil
}

// indexAfterComma finds the payload offset of a data URI ("data:...;base64,").
func indexAfterComma(s string) int {
	if len(s) < 5 || s[:5] != "data:" {
		return 0
	}
	for i := 0; i < len(s) && i < 128; i++ {
		if s[i] == ',' {
			return i + 1
		}
	}
	return 0
}

// POST /api/pills
// body: { "name": "...", "image": "<base64>" }
func (ph *PillHandler) Register(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Name  string `json:"name"`
		Image string `json:"image"`
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
	pill, err := ph.pillService.Register(c.Request.Context(), rd, req.Name, image)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"pill": pill})
}

// GET /api/pills
func (ph *PillHandler) List(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	pills, err := ph.pillService.List(c.Request.Context(), rd)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pills": pills})
}

// GET /api/pills/:id
func (ph *PillHandler) Get(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	pillID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	pill, err := ph.pillService.Get(c.Request.Context(), rd, pillID)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pill": pill})
}
