package ctxlogger

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationAndOrg(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-1")
	ctx = orgcontext.WithOrgID(ctx, snowflake.ID(42))
	ctx = orgcontext.WithActorID(ctx, snowflake.ID(7))

	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "cid-1", fields["correlation_id"])
	assert.Equal(t, "42", fields["org_id"])
	assert.Equal(t, "7", fields["actor_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestFieldsOmitsMissingMetadata(t *testing.T) {
	SetServiceName("contractledger")

	fields := Fields(context.Background())

	require.Len(t, fields, 1)
	assert.Equal(t, "service", fields[0].Key)
	assert.Equal(t, "contractledger", fields[0].String)
}
