package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aymarr/mediguardian-backend/internal/http/response"
	"github.com/aymarr/mediguardian-backend/internal/pkg/ctxutil"
)

// caller pulls the authenticated RequestData attached by RequireAuth. A
// missing caller on a protected route is a wiring bug, answered as 401.
func caller(c *gin.Context) (ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorEnvelope{
			Error: response.APIError{Message: "missing or invalid token", Code: "unauthorized"},
		})
		return ctxutil.RequestData{}, false
	}
	return *rd, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.ErrorEnvelope{
			Error: response.APIError{Message: "invalid " + name, Code: "invalid_argument"},
		})
		return uuid.Nil, false
	}
	return id, true
}
