package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

// RequestData is the authenticated caller attached to a request context.
// Core services take it explicitly; nothing below the middleware layer reads
// ambient identity state.
type RequestData struct {
	UserID uuid.UUID
	Role   string
	Email  string
}

const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
)

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}
