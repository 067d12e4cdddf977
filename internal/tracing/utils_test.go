package tracing

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"

	"github.com/oneboxhq/onebox/internal/utils"
)

func TestSetDefaultServiceSpanTags(t *testing.T) {
	tracer := mocktracer.New()
	span := tracer.StartSpan("test-operation")

	ctx := utils.WithAccountID(context.Background(), "acct1")
	ctx = utils.WithFolder(ctx, "INBOX")

	SetDefaultServiceSpanTags(ctx, span)
	span.Finish()

	mockSpan := span.(*mocktracer.MockSpan)
	assert.Equal(t, "acct1", mockSpan.Tag(SpanTagAccountId))
	assert.Equal(t, "INBOX", mockSpan.Tag(SpanTagFolder))
	assert.Equal(t, SpanTagComponentService, mockSpan.Tag(SpanTagComponent))
}

func TestSetDefaultSpanTags_EmptyContext(t *testing.T) {
	tracer := mocktracer.New()
	span := tracer.StartSpan("test-operation")

	SetDefaultPipelineSpanTags(context.Background(), span)
	span.Finish()

	mockSpan := span.(*mocktracer.MockSpan)
	assert.Nil(t, mockSpan.Tag(SpanTagAccountId))
	assert.Nil(t, mockSpan.Tag(SpanTagFolder))
	assert.Equal(t, SpanTagComponentPipeline, mockSpan.Tag(SpanTagComponent))
}
