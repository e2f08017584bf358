package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/aymarr/mediguardian-backend/internal/http/response"
	"github.com/aymarr/mediguardian-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	me, err := uh.userService.Me(c.Request.Context(), rd)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// GET /api/users?role=patient
func (uh *UserHandler) List(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	users, err := uh.userService.List(c.Request.Context(), rd, c.Query("role"))
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"users": users})
}
