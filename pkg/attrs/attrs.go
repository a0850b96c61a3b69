// Package attrs bridges slog-style key/value lists to tracing attributes so a
// single attribute list can feed both the audit log and the active span.
package attrs

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Span converts a [key1, value1, key2, value2, ...] list into span
// attributes. Pairs with a non-string key are skipped; a trailing key
// without a value is dropped.
func Span(kv []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			out = append(out, attribute.String(k, v))
		case int:
			out = append(out, attribute.Int(k, v))
		case int64:
			out = append(out, attribute.Int64(k, v))
		case float64:
			out = append(out, attribute.Float64(k, v))
		case bool:
			out = append(out, attribute.Bool(k, v))
		case fmt.Stringer:
			out = append(out, attribute.String(k, v.String()))
		default:
			out = append(out, attribute.String(k, fmt.Sprint(v)))
		}
	}
	return out
}

// String returns the string value stored under key, or "".
func String(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			if v, ok := kv[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}
