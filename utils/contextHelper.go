package utils

import (
	"context"

	"github.com/mmdatafocus/maintcost_backend/appctx"
	"github.com/mmdatafocus/maintcost_backend/models"
)

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyCurrentUser   = appctx.ContextKeyCurrentUser
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

// GetTokenFromContext returns the raw bearer token stored by the auth middleware, for tooling and tests.
func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func GetCurrentUserFromContext(ctx context.Context) (models.CurrentUser, bool) {
	return appctx.Get[models.CurrentUser](ctx, ContextKeyCurrentUser)
}

func SetCurrentUserInContext(ctx context.Context, user models.CurrentUser) context.Context {
	return appctx.Set(ctx, ContextKeyCurrentUser, user)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
