package catalogue

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row is one selected row keyed by lower-cased column name.
type Row map[string]any

// String returns the column as text; NULL and absent columns yield "".
func (r Row) String(column string) string {
	switch v := r[strings.ToLower(column)].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(TimestampLayout)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the column as a float. The bool is false for NULL, absent,
// non-numeric and non-finite values; postgres numeric columns can hold NaN
// and infinities.
func (r Row) Float(column string) (float64, bool) {
	f, ok := r.number(column)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (r Row) number(column string) (float64, bool) {
	switch v := r[strings.ToLower(column)].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the column as an integer.
func (r Row) Int(column string) (int, bool) {
	switch v := r[strings.ToLower(column)].(type) {
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		return i, err == nil
	case []byte:
		i, err := strconv.Atoi(strings.TrimSpace(string(v)))
		return i, err == nil
	default:
		return 0, false
	}
}
