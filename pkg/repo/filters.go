package repo

import (
	"strconv"
	"strings"
)

// ColumnRef names a column through the table or join alias that owns it.
type ColumnRef struct {
	Table string
	Name  string
}

// Col builds a ColumnRef.
func Col(table, name string) ColumnRef {
	return ColumnRef{Table: table, Name: name}
}

func (c ColumnRef) String() string {
	return QuoteIdent(c.Table) + "." + QuoteIdent(c.Name)
}

// params accumulates bound values while a statement is rendered.
type params struct {
	values []any
}

func (p *params) bind(v any) string {
	p.values = append(p.values, v)
	return "$" + strconv.Itoa(len(p.values))
}

// Filter is the right-hand side of a predicate. The set of filters is closed:
// values are always bound as parameters and columns are always quoted.
type Filter interface {
	render(lhs string, p *params) string
	refs() []ColumnRef
}

type compareFilter struct {
	op    string
	value any
}

func (f compareFilter) render(lhs string, p *params) string {
	return lhs + " " + f.op + " " + p.bind(f.value)
}

func (f compareFilter) refs() []ColumnRef { return nil }

// Eq matches lhs = value. A nil value renders IS NULL.
func Eq(value any) Filter {
	if value == nil {
		return IsNull()
	}
	return compareFilter{op: "=", value: value}
}

// NotEq matches lhs <> value.
func NotEq(value any) Filter { return compareFilter{op: "<>", value: value} }

// Lt matches lhs < value.
func Lt(value any) Filter { return compareFilter{op: "<", value: value} }

// Gt matches lhs > value.
func Gt(value any) Filter { return compareFilter{op: ">", value: value} }

type inFilter struct {
	values []any
}

func (f inFilter) render(lhs string, p *params) string {
	if len(f.values) == 0 {
		return "FALSE"
	}
	ph := make([]string, len(f.values))
	for i, v := range f.values {
		ph[i] = p.bind(v)
	}
	return lhs + " IN (" + strings.Join(ph, ", ") + ")"
}

func (f inFilter) refs() []ColumnRef { return nil }

// In matches lhs against any of values. An empty list matches nothing.
func In[T any](values []T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return inFilter{values: vs}
}

type nullFilter struct {
	not bool
}

func (f nullFilter) render(lhs string, _ *params) string {
	if f.not {
		return lhs + " IS NOT NULL"
	}
	return lhs + " IS NULL"
}

func (f nullFilter) refs() []ColumnRef { return nil }

// IsNull matches lhs IS NULL.
func IsNull() Filter { return nullFilter{} }

// IsNotNull matches lhs IS NOT NULL.
func IsNotNull() Filter { return nullFilter{not: true} }

type columnFilter struct {
	col ColumnRef
}

func (f columnFilter) render(lhs string, _ *params) string {
	return lhs + " = " + f.col.String()
}

func (f columnFilter) refs() []ColumnRef { return []ColumnRef{f.col} }

// EqCol compares lhs with another column, typically in a join condition.
func EqCol(col ColumnRef) Filter { return columnFilter{col: col} }

// Condition is a boolean predicate over column references.
type Condition interface {
	render(p *params) string
	refs() []ColumnRef
}

type fieldCondition struct {
	col    ColumnRef
	filter Filter
}

func (c fieldCondition) render(p *params) string {
	return c.filter.render(c.col.String(), p)
}

func (c fieldCondition) refs() []ColumnRef {
	return append([]ColumnRef{c.col}, c.filter.refs()...)
}

// Cond applies filter to col.
func Cond(col ColumnRef, filter Filter) Condition {
	return fieldCondition{col: col, filter: filter}
}

type junction struct {
	op    string
	parts []Condition
}

func (j junction) render(p *params) string {
	switch len(j.parts) {
	case 0:
		if j.op == "OR" {
			return "FALSE"
		}
		return "TRUE"
	case 1:
		return j.parts[0].render(p)
	}
	rendered := make([]string, len(j.parts))
	for i, c := range j.parts {
		rendered[i] = c.render(p)
	}
	return "(" + strings.Join(rendered, " "+j.op+" ") + ")"
}

func (j junction) refs() []ColumnRef {
	var out []ColumnRef
	for _, c := range j.parts {
		out = append(out, c.refs()...)
	}
	return out
}

// And is true when every condition holds.
func And(conds ...Condition) Condition { return junction{op: "AND", parts: conds} }

// Or is true when any condition holds.
func Or(conds ...Condition) Condition { return junction{op: "OR", parts: conds} }
