package postgres

import (
	"fmt"
	"strings"
	"time"
)

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func clampLimit(limit int, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

// setBuilder accumulates "column = $n" pairs for partial updates.
type setBuilder struct {
	clauses []string
	args    []interface{}
}

func (b *setBuilder) add(column string, value interface{}) {
	b.args = append(b.args, value)
	b.clauses = append(b.clauses, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *setBuilder) empty() bool {
	return len(b.clauses) == 0
}

func (b *setBuilder) String() string {
	return strings.Join(b.clauses, ", ")
}

// whereBuilder accumulates AND-ed predicates with positional args.
type whereBuilder struct {
	preds []string
	args  []interface{}
}

func (b *whereBuilder) add(format string, value interface{}) {
	b.args = append(b.args, value)
	b.preds = append(b.preds, fmt.Sprintf(format, len(b.args)))
}

func (b *whereBuilder) String() string {
	if len(b.preds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.preds, " AND ")
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
