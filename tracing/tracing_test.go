package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")
	require.NoError(t, Init("parally", "0.0.1", fname))

	ctx, span := StartSpan(context.Background(), "dispatcher.task", KindProducer)
	span.WithAttributes(map[string]string{"worker.address": "127.0.0.1:5000"})
	current, ok := SpanFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, span.TraceID(), current.TraceID())

	_, child := StartSpan(ctx, "client.run", KindConsumer)
	EndSpan(child, errors.New("boom"))
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dispatcher.task")
	assert.Contains(t, string(data), "parent.span_id")
}

func TestNilSpan(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	span.SetStatus(nil)
	EndSpan(span, nil)
	assert.Equal(t, "", span.TraceID())
	_, ok := SpanFromContext(context.Background())
	assert.False(t, ok)
}
