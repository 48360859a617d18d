package docstore

import (
	"encoding/json"
	"maps"
	"strconv"
	"time"
)

type serverTimestamp struct{}

// ServerTimestamp as a field value is replaced by the store's clock at write time.
var ServerTimestamp any = serverTimestamp{}

// IncrementValue is a field transform adding Delta to the stored number.
// A missing or non-numeric field is treated as zero.
type IncrementValue struct {
	Delta int64
}

// Increment returns a field value that atomically adds delta at write time.
func Increment(delta int64) any {
	return IncrementValue{Delta: delta}
}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// NormalizeValue converts v to the canonical representation stores keep:
// integers become int64, floats float64, times UTC.
func NormalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(string(n), 64); err == nil {
			return f
		}
		return string(n)
	case time.Time:
		return n.UTC()
	case *time.Time:
		if n == nil {
			return nil
		}
		return n.UTC()
	}
	return v
}

// ApplyFields resolves field transforms against existing and returns the new
// document data. With replace the existing fields are dropped first, but
// increments still read their base value from existing.
func ApplyFields(existing, fields map[string]any, replace bool, now time.Time) map[string]any {
	var out map[string]any
	if replace || existing == nil {
		out = make(map[string]any, len(fields))
	} else {
		out = maps.Clone(existing)
	}
	for k, v := range fields {
		switch t := v.(type) {
		case serverTimestamp:
			out[k] = now.UTC()
		case IncrementValue:
			out[k] = addInt(existing[k], t.Delta)
		default:
			out[k] = NormalizeValue(v)
		}
	}
	return out
}

func addInt(base any, delta int64) any {
	switch n := NormalizeValue(base).(type) {
	case int64:
		return n + delta
	case float64:
		return n + float64(delta)
	}
	return delta
}

// SplitTransforms separates plain values from increments and resolves
// ServerTimestamp to now. Stores that push increments down to their backend
// use it to build the write.
func SplitTransforms(fields map[string]any, now time.Time) (plain map[string]any, increments map[string]int64) {
	plain = make(map[string]any, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case serverTimestamp:
			plain[k] = now.UTC()
		case IncrementValue:
			if increments == nil {
				increments = make(map[string]int64)
			}
			increments[k] = t.Delta
		default:
			plain[k] = NormalizeValue(v)
		}
	}
	return plain, increments
}

// Int64 reads a numeric field as int64.
func (d Document) Int64(field string) int64 {
	switch n := NormalizeValue(d.Data[field]).(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

// String reads a string field.
func (d Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

// Bool reads a boolean field.
func (d Document) Bool(field string) bool {
	b, _ := d.Data[field].(bool)
	return b
}

// Time reads a time field stored either as time.Time or RFC 3339 text.
func (d Document) Time(field string) time.Time {
	switch t := d.Data[field].(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
