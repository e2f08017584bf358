package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/aymarr/mediguardian-backend/internal/http/response"
	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/register
// body: { "name": "...", "email": "...", "password": "...", "role": "patient|caregiver" }
func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMapped(c, fmt.Errorf("%w: invalid request body", pkgerrors.ErrInvalidArgument))
		return
	}
	user, token, err := ah.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": user, "token": token})
}

// POST /api/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMapped(c, fmt.Errorf("%w: invalid request body", pkgerrors.ErrInvalidArgument))
		return
	}
	user, token, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondMapped(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": user, "token": token})
}
