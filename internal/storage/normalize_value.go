package storage

import "time"

// NormalizeValue converts a value scanned from a driver into the cell types
// records use (nil, string, int64, float64, bool), so results read back from
// different backends compare equal.
//
// Backends must not assume a particular driver representation; for example
// MySQL and SQL Server return DECIMAL and text as []byte.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case nil, string, int64, float64, bool:
		return t
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int8:
		return int64(t)
	case uint8:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}
