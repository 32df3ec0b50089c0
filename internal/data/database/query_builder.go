// Package database builds parameterized list queries for the analytics tables.
package database

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType is the comparison operator of a Condition.
type ConditionType string

const (
	Equal              ConditionType = "="
	GreaterThanOrEqual ConditionType = ">="
	LessThan           ConditionType = "<"
)

// Condition is a single "field op $n" filter.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

// WhereCond builds a Condition.
func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// ListQueryOptions describes a paginated SELECT. Limit and Offset are ignored when <= 0.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

// ListQueryOption mutates ListQueryOptions.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions applies opts over a SELECT * of table.
func NewListQueryOptions(table string, opts ...ListQueryOption) ListQueryOptions {
	o := ListQueryOptions{Table: table}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = append(o.Columns, cols...) }
}

func WithCondition(c Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, c) }
}

func WithOrderBy(column, dir string) ListQueryOption {
	return func(o *ListQueryOptions) { o.OrderBy, o.OrderDir = column, dir }
}

func WithLimit(n int) ListQueryOption {
	return func(o *ListQueryOptions) { o.Limit = n }
}

func WithOffset(n int) ListQueryOption {
	return func(o *ListQueryOptions) { o.Offset = n }
}

// BuildListQuery renders opts as SQL with positional arguments.
// Identifiers are quoted; unknown operators and order directions fall back to "=" and ASC.
func BuildListQuery(opts ListQueryOptions) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if len(opts.Columns) == 0 {
		b.WriteString("*")
	} else {
		for i, c := range opts.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIdent(c))
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(opts.Table))

	for i, c := range opts.Conditions {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, c.Value)
		b.WriteString(quoteIdent(c.Field))
		b.WriteString(" ")
		b.WriteString(string(operator(c.Type)))
		b.WriteString(" $")
		b.WriteString(strconv.Itoa(len(args)))
	}

	if opts.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(quoteIdent(opts.OrderBy))
		if strings.EqualFold(opts.OrderDir, "DESC") {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

func operator(t ConditionType) ConditionType {
	switch t {
	case Equal, GreaterThanOrEqual, LessThan:
		return t
	default:
		return Equal
	}
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
