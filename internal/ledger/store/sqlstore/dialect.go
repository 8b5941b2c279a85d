package sqlstore

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"tipjar/internal/ledger/models"
)

// Dialect selects the SQL flavour of a Store.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect accepts the STORE_BACKEND spellings.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", s)
	}
}

// driverName is the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "pgx"
}

// rebind turns $n placeholders into SQLite's numbered ?n form.
func (d Dialect) rebind(query string) string {
	if d != SQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

// amountIn and asText wrap a parameter or column so 256-bit amounts and
// UUIDs travel as text. SQLite stores them as TEXT already.
func (d Dialect) amountIn(param string) string {
	if d == SQLite {
		return param
	}
	return "CAST(CAST(" + param + " AS TEXT) AS NUMERIC(78,0))"
}

// messageArg binds a donation message. PostgreSQL TEXT cannot hold NUL, so
// messages are stored as BYTEA there and kept byte for byte.
func (d Dialect) messageArg(message string) any {
	if d == SQLite {
		return message
	}
	return []byte(message)
}

func (d Dialect) asText(column string) string {
	if d == SQLite {
		return column
	}
	return "CAST(" + column + " AS TEXT)"
}

func (d Dialect) lockClause() string {
	if d == SQLite {
		return ""
	}
	return " FOR UPDATE"
}

// kindFilter renders the event kind predicate starting at placeholder n.
func (d Dialect) kindFilter(kinds []models.EventKind, n int) (string, []any) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	if d == Postgres {
		return fmt.Sprintf(" AND kind = ANY($%d)", n), []any{pq.Array(names)}
	}
	marks := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		marks[i] = fmt.Sprintf("$%d", n+i)
		args[i] = name
	}
	return " AND kind IN (" + strings.Join(marks, ", ") + ")", args
}

func (d Dialect) schema() []string {
	if d == SQLite {
		return []string{
			`CREATE TABLE IF NOT EXISTS ledger_custody (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				owner TEXT NOT NULL,
				balance TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ledger_contributions (
				donor TEXT PRIMARY KEY,
				total TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ledger_events (
				seq INTEGER PRIMARY KEY,
				id TEXT NOT NULL UNIQUE,
				kind TEXT NOT NULL,
				topic TEXT NOT NULL,
				account TEXT NOT NULL,
				amount TEXT NOT NULL,
				message TEXT NOT NULL,
				previous_owner TEXT,
				occurred_at TIMESTAMP NOT NULL
			)`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS ledger_custody (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			owner TEXT NOT NULL,
			balance NUMERIC(78,0) NOT NULL CHECK (balance >= 0),
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_contributions (
			donor TEXT PRIMARY KEY,
			total NUMERIC(78,0) NOT NULL CHECK (total >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_events (
			seq BIGINT PRIMARY KEY,
			id UUID NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			topic TEXT NOT NULL,
			account TEXT NOT NULL,
			amount NUMERIC(78,0) NOT NULL,
			message BYTEA NOT NULL,
			previous_owner TEXT,
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_kind ON ledger_events (kind, seq)`,
	}
}
