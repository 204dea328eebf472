package auth

import (
	"context"

	"blog/internal/models"
)

type ctxKey int

const userKey ctxKey = iota

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated caller, nil for anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
