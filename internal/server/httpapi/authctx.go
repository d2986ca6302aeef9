package httpapi

import (
	"context"

	"github.com/yaxxsin/task-management-prod-sub001/internal/service"
)

type ctxKey string

const identityKey ctxKey = "td.identity"

// WithIdentity stores the authenticated caller in context.
func WithIdentity(ctx context.Context, id service.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromCtx fetches the caller identity from context.
func IdentityFromCtx(ctx context.Context) (service.Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return service.Identity{}, false
	}
	id, ok := v.(service.Identity)
	return id, ok
}
