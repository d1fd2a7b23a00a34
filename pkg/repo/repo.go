// Package repo holds the SQL toolkit shared by every persistence package:
// the transaction scope types, a composable SELECT builder with join alias
// allocation, typed predicates and a handful of statement helpers.
package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Tx is the scope statements run against. Both *sqlx.DB and *sqlx.Tx satisfy it.
type Tx interface {
	sqlx.ExtContext
}

// Transactor opens a transaction, hands it to fn and commits when fn returns nil.
// Any error returned by fn (or a cancelled context) rolls the transaction back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// QuoteIdent quotes a Postgres identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = QuoteIdent(n)
	}
	return out
}

// Join concatenates non-empty SQL fragments with a single space.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// JoinWhere renders a WHERE clause from pre-rendered predicates.
// Returns an empty string when there is nothing to filter on.
func JoinWhere(where ...string) string {
	parts := make([]string, 0, len(where))
	for _, w := range where {
		if w = strings.TrimSpace(w); w != "" {
			parts = append(parts, w)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(parts, " AND ")
}

// FormatLimitOffset renders LIMIT/OFFSET, omitting non-positive values.
func FormatLimitOffset(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf("LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf("OFFSET %d", offset)
	}
	return ""
}

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}

func returningClause(returning []string) string {
	if len(returning) == 0 {
		return ""
	}
	return "RETURNING " + strings.Join(quoteIdents(returning), ", ")
}

// Insert renders INSERT INTO table (fields...) VALUES ($1...) [RETURNING ...].
func Insert(table string, fields []string, returning ...string) string {
	return Join(
		"INSERT INTO", QuoteIdent(table),
		"("+strings.Join(quoteIdents(fields), ", ")+")",
		"VALUES ("+placeholders(1, len(fields))+")",
		returningClause(returning),
	)
}

// InsertOnConflictDoNothing renders an INSERT that silently skips rows hitting
// the unique key made of conflict. RETURNING yields no row in that case.
func InsertOnConflictDoNothing(table string, fields, conflict []string, returning ...string) string {
	return Join(
		"INSERT INTO", QuoteIdent(table),
		"("+strings.Join(quoteIdents(fields), ", ")+")",
		"VALUES ("+placeholders(1, len(fields))+")",
		"ON CONFLICT ("+strings.Join(quoteIdents(conflict), ", ")+") DO NOTHING",
		returningClause(returning),
	)
}

// Update renders UPDATE table SET f1 = $1, ... with the remaining where
// predicates appended verbatim. Predicates must use placeholders numbered
// after the SET fields.
func Update(table string, fields []string, where ...string) string {
	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = fmt.Sprintf("%s = $%d", QuoteIdent(f), i+1)
	}
	return Join("UPDATE", QuoteIdent(table), "SET", strings.Join(sets, ", "), JoinWhere(where...))
}
