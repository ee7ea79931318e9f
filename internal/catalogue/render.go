package catalogue

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func checkIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid %s identifier %q", kind, name)
	}
	return nil
}

// RenderSelect renders SELECT <columns> FROM <table> [WHERE a = x AND ...].
// Conditions keep their given order. A NULL condition renders as IS NULL.
func RenderSelect(columns []string, table string, conds []Condition) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("select from %s: no columns", table)
	}
	if err := checkIdentifier("table", table); err != nil {
		return "", err
	}
	for _, column := range columns {
		if column == "*" {
			continue
		}
		if err := checkIdentifier("column", column); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)
	for i, cond := range conds {
		if err := checkIdentifier("column", cond.Column); err != nil {
			return "", err
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(cond.Column)
		if cond.Value.IsNull() {
			b.WriteString(" IS NULL")
			continue
		}
		b.WriteString(" = ")
		b.WriteString(cond.Value.SQL())
	}
	return b.String(), nil
}

// RenderInsert renders INSERT INTO <table> (<cols>) VALUES (<literals>).
// Column order is preserved.
func RenderInsert(table string, cols []Column) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("insert into %s: no columns", table)
	}
	if err := checkIdentifier("table", table); err != nil {
		return "", err
	}
	names := make([]string, 0, len(cols))
	values := make([]string, 0, len(cols))
	seen := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		if err := checkIdentifier("column", col.Name); err != nil {
			return "", err
		}
		if _, dup := seen[col.Name]; dup {
			return "", fmt.Errorf("insert into %s: column %q repeated", table, col.Name)
		}
		seen[col.Name] = struct{}{}
		names = append(names, col.Name)
		values = append(values, col.Value.SQL())
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), strings.Join(values, ", ")), nil
}
