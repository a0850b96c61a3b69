package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSpan(t *testing.T) {
	subject := uuid.MustParse("6f1c2b9e-7d3a-4c1b-9e2f-0a1b2c3d4e5f")
	got := Span([]any{
		"subject_id", subject,
		"outcome", "approved",
		"sequence", int64(3),
		42, "skipped",
		"dangling",
	})
	assert.Equal(t, []attribute.KeyValue{
		attribute.String("subject_id", subject.String()),
		attribute.String("outcome", "approved"),
		attribute.Int64("sequence", 3),
	}, got)
}

func TestString(t *testing.T) {
	kv := []any{"subject_id", "abc", "count", 2}
	assert.Equal(t, "abc", String(kv, "subject_id"))
	assert.Empty(t, String(kv, "count"))
	assert.Empty(t, String(kv, "missing"))
}
