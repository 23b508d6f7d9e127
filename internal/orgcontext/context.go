// Package orgcontext carries the tenant and the acting user of a request.
// Every contract, installment and commission query is scoped by the org id
// found here.
package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type ctxKey int

const (
	orgKey ctxKey = iota
	actorKey
)

func WithOrgID(ctx context.Context, orgID snowflake.ID) context.Context {
	return context.WithValue(ctx, orgKey, orgID)
}

// OrgIDFromContext reports false when no org, or the zero id, is set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFrom(ctx, orgKey)
}

func WithActorID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, actorKey, userID)
}

// ActorIDFromContext returns the user acting on the request. Scheduled and
// system work runs without one.
func ActorIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFrom(ctx, actorKey)
}

func idFrom(ctx context.Context, key ctxKey) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(key).(snowflake.ID)
	return id, ok && id != 0
}
