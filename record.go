package sheetsync

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one local entity as a field name -> value map.
// The engine never assumes a schema; stores decide which fields exist.
type Record struct {
	Values map[string]interface{} // フィールド名と値のマップ
}

// NewRecord creates a record holding a copy of values
func NewRecord(values map[string]interface{}) *Record {
	r := &Record{Values: make(map[string]interface{}, len(values))}
	for k, v := range values {
		r.Values[k] = v
	}
	return r
}

// Clone returns a shallow copy of the record
func (r *Record) Clone() *Record {
	return NewRecord(r.Values)
}

// Has reports whether the field is set
func (r *Record) Has(field string) bool {
	_, ok := r.Values[field]
	return ok
}

// GetAsString returns the value as string or defaultValue if not found.
// This is the representation written into sheet cells.
func (r *Record) GetAsString(field string, defaultValue string) string {
	v, ok := r.Values[field]
	if !ok || v == nil {
		return defaultValue
	}

	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case int, int64, int32:
		return fmt.Sprintf("%d", val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return val.Format(time.RFC3339)
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// GetAsInt64 returns the value as int64 or defaultValue if not found
func (r *Record) GetAsInt64(field string, defaultValue int64) int64 {
	v, ok := r.Values[field]
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetAsBool returns the value as bool or defaultValue if not found.
// Sheets render booleans as TRUE/FALSE, so string values are compared case-insensitively.
func (r *Record) GetAsBool(field string, defaultValue bool) bool {
	v, ok := r.Values[field]
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no", "":
			return false
		}
	case int, int64:
		return val != 0
	}
	return defaultValue
}

// GetAsTime returns the value as time.Time or defaultValue if not found
func (r *Record) GetAsTime(field string, defaultValue time.Time) time.Time {
	v, ok := r.Values[field]
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		formats := []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, val); err == nil {
				return t
			}
		}
	}
	return defaultValue
}

// Set assigns a raw value
func (r *Record) Set(field string, value interface{}) {
	if r.Values == nil {
		r.Values = make(map[string]interface{})
	}
	r.Values[field] = value
}

// SetString sets a string value
func (r *Record) SetString(field string, value string) {
	r.Set(field, value)
}

// SetTime sets a time.Time value (stored as ISO 8601 string)
func (r *Record) SetTime(field string, value time.Time) {
	r.Set(field, value.Format(time.RFC3339))
}
