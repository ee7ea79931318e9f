package catalogue

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type literalKind uint8

const (
	kindNull literalKind = iota
	kindString
	kindInt
	kindFloat
)

// TimestampLayout is the textual form used for time columns.
const TimestampLayout = "2006-01-02 15:04:05"

// Literal is a typed SQL value. The zero value is NULL.
type Literal struct {
	kind literalKind
	s    string
	i    int64
	f    float64
}

// String returns a quoted string literal.
func String(value string) Literal { return Literal{kind: kindString, s: value} }

// Int returns an integer literal.
func Int(value int) Literal { return Literal{kind: kindInt, i: int64(value)} }

// Float returns a numeric literal. Non-finite values become NULL so they can
// never be written.
func Float(value float64) Literal {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Null()
	}
	return Literal{kind: kindFloat, f: value}
}

// Time returns a string literal in TimestampLayout (UTC).
func Time(value time.Time) Literal {
	if value.IsZero() {
		return Null()
	}
	return String(value.UTC().Format(TimestampLayout))
}

// Null returns the NULL literal.
func Null() Literal { return Literal{} }

// IsNull reports whether the literal renders as NULL.
func (l Literal) IsNull() bool { return l.kind == kindNull }

// SQL renders the literal. Strings are single-quoted with embedded quotes
// doubled.
func (l Literal) SQL() string {
	switch l.kind {
	case kindString:
		return "'" + strings.ReplaceAll(l.s, "'", "''") + "'"
	case kindInt:
		return strconv.FormatInt(l.i, 10)
	case kindFloat:
		return strconv.FormatFloat(l.f, 'f', -1, 64)
	default:
		return "NULL"
	}
}

func (l Literal) String() string { return l.SQL() }

// Column is one named value of an inserted row.
type Column struct {
	Name  string
	Value Literal
}

// Condition is one equality term of a WHERE conjunction.
type Condition struct {
	Column string
	Value  Literal
}

// Eq builds an equality condition.
func Eq(column string, value Literal) Condition {
	return Condition{Column: column, Value: value}
}
