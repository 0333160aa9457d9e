package query

import (
	"fmt"
	"reflect"
	"time"
)

// UsageError reports a malformed builder chain: an unsupported operator, a
// bad argument count, invalid pagination, or a second statement type on the
// same builder. It is detected at the offending call and never sent over
// the wire; the builder short-circuits all later calls and returns the
// error from ToQuery and every terminal operation.
type UsageError struct {
	Method string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("query: %s: %s", e.Method, e.Reason)
}

func usageErrf(method, format string, args ...any) *UsageError {
	return &UsageError{Method: method, Reason: fmt.Sprintf(format, args...)}
}

// normalizeValue restricts condition and payload values to the closed set
// the wire format supports: null, bool, number, string, sequence, mapping.
// time.Time is folded to its RFC 3339 rendering. Anything else is a usage
// error.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			nv, err := normalizeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			nv, err := normalizeValue(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = nv
		}
		return out, nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalizeValue(rv.Elem().Interface())
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// normalizeRecord normalizes one insert/update mapping.
func normalizeRecord(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}
