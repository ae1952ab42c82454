package auth

import (
	"context"
)

type contextKey string

const AdminKey contextKey = "admin"

// WithAdmin marks ctx as carrying a verified operator token.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, AdminKey, true)
}

func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(AdminKey).(bool)
	return ok
}
