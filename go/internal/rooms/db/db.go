package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Dialect selects the placeholder style of the underlying driver
type Dialect int

const (
	// Postgres uses $1, $2, ... placeholders (lib/pq, pgx)
	Postgres Dialect = iota
	// SQLite uses ? placeholders (modernc.org/sqlite)
	SQLite
)

// ParseDialect maps a driver name onto a dialect
func ParseDialect(driver string) Dialect {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite
	default:
		return Postgres
	}
}

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

type Queries struct {
	db      DBTX
	dialect Dialect
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db:      tx,
		dialect: q.dialect,
	}
}

// rebind rewrites ? placeholders for the dialect. Queries never contain a literal ?.
func (q *Queries) rebind(query string) string {
	if q.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
