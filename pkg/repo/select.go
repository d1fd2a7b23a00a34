package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
)

type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
)

type SortDirection string

const (
	Asc  SortDirection = "ASC"
	Desc SortDirection = "DESC"
)

// Row is a result row keyed by projected column name.
type Row map[string]any

type selectColumn struct {
	col  ColumnRef
	name string
}

type joinClause struct {
	kind  JoinKind
	table string
	alias string
	on    Condition
}

func (j joinClause) ref() string {
	if j.alias != "" {
		return j.alias
	}
	return j.table
}

type orderClause struct {
	col ColumnRef
	dir SortDirection
}

// SelectQuery composes a parameterized SELECT. Table references inside the
// statement are either the root table, a joined table name or an alias
// handed out by AllocateJoinAlias. Build errors surface from ToSQL.
type SelectQuery struct {
	table    string
	columns  []selectColumn
	joins    []joinClause
	where    []Condition
	orderBy  []orderClause
	limit    int
	aliasSeq int
	names    map[string]struct{}
	err      error
}

func NewSelect(table string) *SelectQuery {
	return &SelectQuery{
		table: table,
		names: map[string]struct{}{table: {}},
	}
}

// Table returns the root table.
func (q *SelectQuery) Table() string {
	return q.table
}

// AllocateJoinAlias hands out T1, T2, ... skipping any name already used by
// the statement.
func (q *SelectQuery) AllocateJoinAlias() string {
	for {
		q.aliasSeq++
		alias := "T" + strconv.Itoa(q.aliasSeq)
		if _, taken := q.names[alias]; taken {
			continue
		}
		q.names[alias] = struct{}{}
		return alias
	}
}

// Join adds a join. An empty alias references the table by its own name,
// which is only valid once per statement.
func (q *SelectQuery) Join(kind JoinKind, table, alias string, on Condition) *SelectQuery {
	j := joinClause{kind: kind, table: table, alias: alias, on: on}
	ref := j.ref()
	if on == nil {
		q.fail(errors.Errorf("join of %q has no condition", ref))
	}
	if alias == "" {
		if _, taken := q.names[table]; taken {
			q.fail(errors.Errorf("table %q joined more than once without an alias", table))
		}
	} else if alias == q.table || q.joinedAs(alias) {
		q.fail(errors.Errorf("alias %q already in use", alias))
	}
	q.names[ref] = struct{}{}
	q.joins = append(q.joins, j)
	return q
}

func (q *SelectQuery) joinedAs(ref string) bool {
	for _, j := range q.joins {
		if j.ref() == ref {
			return true
		}
	}
	return false
}

func (q *SelectQuery) Column(table, column string) *SelectQuery {
	return q.ColumnAs(table, column, column)
}

func (q *SelectQuery) ColumnAs(table, column, name string) *SelectQuery {
	q.columns = append(q.columns, selectColumn{col: Col(table, column), name: name})
	return q
}

// Where adds a predicate; multiple calls are AND-ed.
func (q *SelectQuery) Where(cond Condition) *SelectQuery {
	q.where = append(q.where, cond)
	return q
}

func (q *SelectQuery) OrderBy(table, column string, dir SortDirection) *SelectQuery {
	if dir != Asc && dir != Desc {
		q.fail(errors.Errorf("invalid sort direction %q", dir))
	}
	q.orderBy = append(q.orderBy, orderClause{col: Col(table, column), dir: dir})
	return q
}

func (q *SelectQuery) Limit(n int) *SelectQuery {
	q.limit = n
	return q
}

func (q *SelectQuery) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// checkRefs resolves refs against the root table and the first n joins.
func (q *SelectQuery) checkRefs(refs []ColumnRef, n int) error {
	for _, r := range refs {
		if r.Table == q.table {
			continue
		}
		found := false
		for _, j := range q.joins[:n] {
			if j.ref() == r.Table {
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("column %s references unknown table or alias %q", r.Name, r.Table)
		}
	}
	return nil
}

func (q *SelectQuery) validate() error {
	if q.err != nil {
		return q.err
	}
	if len(q.columns) == 0 {
		return errors.New("select has no columns")
	}
	// A join condition sees only the tables joined up to and including itself.
	for i, j := range q.joins {
		if err := q.checkRefs(j.on.refs(), i+1); err != nil {
			return errors.Wrapf(err, "join %s", j.ref())
		}
	}
	var refs []ColumnRef
	seen := make(map[string]struct{}, len(q.columns))
	for _, c := range q.columns {
		if _, dup := seen[c.name]; dup {
			return errors.Errorf("duplicate output column %q", c.name)
		}
		seen[c.name] = struct{}{}
		refs = append(refs, c.col)
	}
	for _, w := range q.where {
		refs = append(refs, w.refs()...)
	}
	for _, o := range q.orderBy {
		refs = append(refs, o.col)
	}
	return q.checkRefs(refs, len(q.joins))
}

// ToSQL renders the statement and its bound arguments.
func (q *SelectQuery) ToSQL() (string, []any, error) {
	if err := q.validate(); err != nil {
		return "", nil, err
	}
	p := &params{}

	cols := make([]string, len(q.columns))
	for i, c := range q.columns {
		if c.name == c.col.Name {
			cols[i] = c.col.String()
		} else {
			cols[i] = c.col.String() + " AS " + QuoteIdent(c.name)
		}
	}

	joins := make([]string, len(q.joins))
	for i, j := range q.joins {
		target := QuoteIdent(j.table)
		if j.alias != "" {
			target += " AS " + QuoteIdent(j.alias)
		}
		joins[i] = fmt.Sprintf("%s %s ON %s", j.kind, target, j.on.render(p))
	}

	where := make([]string, len(q.where))
	for i, w := range q.where {
		where[i] = w.render(p)
	}

	var orderBy string
	if len(q.orderBy) > 0 {
		parts := make([]string, len(q.orderBy))
		for i, o := range q.orderBy {
			parts[i] = o.col.String() + " " + string(o.dir)
		}
		orderBy = "ORDER BY " + strings.Join(parts, ", ")
	}

	sql := Join(
		"SELECT", strings.Join(cols, ", "),
		"FROM", QuoteIdent(q.table),
		strings.Join(joins, " "),
		JoinWhere(where...),
		orderBy,
		FormatLimitOffset(q.limit, 0),
	)
	return sql, p.values, nil
}

// Execute runs the statement and returns every row as a map.
func (q *SelectQuery) Execute(ctx context.Context, tx Tx) ([]Row, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryxContext(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "select from %s", q.table)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return out, nil
}

// Get scans exactly one row into dest; sql.ErrNoRows when nothing matched.
func (q *SelectQuery) Get(ctx context.Context, tx Tx, dest any) error {
	sql, args, err := q.ToSQL()
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, tx, dest, sql, args...)
}

// Select scans every row into the slice pointed to by dest.
func (q *SelectQuery) Select(ctx context.Context, tx Tx, dest any) error {
	sql, args, err := q.ToSQL()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, tx, dest, sql, args...)
}

// String returns a string value or "" when the column is NULL or absent.
func (r Row) String(name string) string {
	switch v := r[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
