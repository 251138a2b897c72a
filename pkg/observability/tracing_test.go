package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartSpan_ReturnsValidNoopSpanAbsentSDK(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "cag.test_span")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
}
