package utils

import (
	"context"

	"github.com/greenloop/catalog_backend/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyTriggeredBy   = appctx.ContextKeyTriggeredBy
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetTriggeredByFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyTriggeredBy)
}

func SetTriggeredByInContext(ctx context.Context, triggeredBy string) context.Context {
	return appctx.Set(ctx, ContextKeyTriggeredBy, triggeredBy)
}
