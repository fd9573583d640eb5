package ctxutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceDataAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetTraceData(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, TraceID(ctx))

	ctx = WithTraceData(ctx, &TraceData{TraceID: "t-1", RequestID: "r-1"})
	assert.Equal(t, "r-1", RequestID(ctx))
	assert.Equal(t, "t-1", TraceID(ctx))
}
