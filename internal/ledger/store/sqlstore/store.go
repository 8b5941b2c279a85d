// Package sqlstore persists the ledger in PostgreSQL or SQLite through
// database/sql. The store is pure I/O; every rule lives in the models.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"tipjar/internal/ledger/models"
	"tipjar/internal/ledger/ports"
	id "tipjar/pkg/domain"
	"tipjar/pkg/platform/sentinel"
	txctx "tipjar/pkg/platform/tx"
)

// Store implements ports.Store on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to dsn with the dialect's driver and applies the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// One connection serializes writers and keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}
	s := New(db, dialect)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool. Call Migrate before first use.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Migrate creates the ledger tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate ledger schema: %w", err)
		}
	}
	return nil
}

// conn returns the transaction carried by ctx, or the pool.
func (s *Store) conn(ctx context.Context) txctx.Querier {
	return txctx.Conn(ctx, s.db)
}

func (s *Store) Bootstrap(ctx context.Context, owner id.Identity, now time.Time) (*models.Custody, error) {
	custody, err := models.NewCustody(owner, now)
	if err != nil {
		return nil, err
	}
	query := s.dialect.rebind(`
		INSERT INTO ledger_custody (id, owner, balance, updated_at)
		VALUES (1, $1, ` + s.dialect.amountIn("$2") + `, $3)
		ON CONFLICT (id) DO NOTHING
	`)
	if _, err := s.db.ExecContext(ctx, query, custody.Owner.String(), custody.Balance.String(), custody.UpdatedAt); err != nil {
		return nil, fmt.Errorf("bootstrap custody: %w", err)
	}
	return s.Custody(ctx)
}

// Execute runs fn inside one database transaction. The custody row is read
// first so PostgreSQL holds its lock for the whole unit.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return txctx.Run(ctx, s.db, func(ctx context.Context) error {
		unit := &sqlTx{store: s}
		if _, err := unit.Custody(ctx); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		return fn(ctx, unit)
	})
}

func (s *Store) Custody(ctx context.Context) (*models.Custody, error) {
	return s.loadCustody(ctx, "")
}

func (s *Store) loadCustody(ctx context.Context, lock string) (*models.Custody, error) {
	query := `SELECT owner, ` + s.dialect.asText("balance") + `, updated_at FROM ledger_custody WHERE id = 1` + lock
	var owner, balance string
	var updatedAt time.Time
	err := s.conn(ctx).QueryRowContext(ctx, query).Scan(&owner, &balance, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load custody: %w", err)
	}
	custody := &models.Custody{UpdatedAt: updatedAt.UTC()}
	if custody.Owner, err = id.ParseIdentity(owner); err != nil {
		return nil, fmt.Errorf("decode custody owner: %w", err)
	}
	if custody.Balance, err = id.ParseAmount(balance); err != nil {
		return nil, fmt.Errorf("decode custody balance: %w", err)
	}
	return custody, nil
}

func (s *Store) TotalDonated(ctx context.Context, donor id.Identity) (id.Amount, error) {
	query := s.dialect.rebind(`SELECT ` + s.dialect.asText("total") + ` FROM ledger_contributions WHERE donor = $1`)
	var total string
	err := s.conn(ctx).QueryRowContext(ctx, query, donor.String()).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return id.Amount{}, nil
	}
	if err != nil {
		return id.Amount{}, fmt.Errorf("load contribution: %w", err)
	}
	amount, err := id.ParseAmount(total)
	if err != nil {
		return id.Amount{}, fmt.Errorf("decode contribution: %w", err)
	}
	return amount, nil
}

func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	var seq int64
	if err := s.conn(ctx).QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("load last event seq: %w", err)
	}
	return uint64(seq), nil
}

func (s *Store) Events(ctx context.Context, q ports.EventQuery) ([]*models.Event, error) {
	var b strings.Builder
	b.WriteString(`SELECT seq, ` + s.dialect.asText("id") + `, kind, topic, account, ` + s.dialect.asText("amount") + `, message, previous_owner, occurred_at FROM ledger_events WHERE seq > $1`)
	args := []any{int64(q.After)}
	if len(q.Kinds) > 0 {
		clause, kindArgs := s.dialect.kindFilter(q.Kinds, len(args)+1)
		b.WriteString(clause)
		args = append(args, kindArgs...)
	}
	b.WriteString(` ORDER BY seq ASC`)
	if q.Limit > 0 {
		b.WriteString(fmt.Sprintf(` LIMIT $%d`, len(args)+1))
		args = append(args, q.Limit)
	}

	rows, err := s.conn(ctx).QueryContext(ctx, s.dialect.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (*models.Event, error) {
	var (
		seq                  int64
		eventID, kind, topic string
		account, amount      string
		message              []byte
		previousOwner        sql.NullString
		occurredAt           time.Time
	)
	if err := rows.Scan(&seq, &eventID, &kind, &topic, &account, &amount, &message, &previousOwner, &occurredAt); err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	event := &models.Event{
		Seq:        uint64(seq),
		Kind:       models.EventKind(kind),
		Topic:      topic,
		Message:    string(message),
		OccurredAt: occurredAt.UTC(),
	}
	var err error
	if event.ID, err = uuid.Parse(eventID); err != nil {
		return nil, fmt.Errorf("decode event id: %w", err)
	}
	if event.Account, err = id.ParseIdentity(account); err != nil {
		return nil, fmt.Errorf("decode event account: %w", err)
	}
	if event.Amount, err = id.ParseAmount(amount); err != nil {
		return nil, fmt.Errorf("decode event amount: %w", err)
	}
	if previousOwner.Valid {
		prev, err := id.ParseIdentity(previousOwner.String)
		if err != nil {
			return nil, fmt.Errorf("decode previous owner: %w", err)
		}
		event.PreviousOwner = &prev
	}
	return event, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.dialect, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// sqlTx is the ports.Tx handed to Execute callbacks. It reads and writes
// through the transaction stored in ctx.
type sqlTx struct {
	store   *Store
	custody *models.Custody
}

func (t *sqlTx) Custody(ctx context.Context) (*models.Custody, error) {
	if t.custody == nil {
		custody, err := t.store.loadCustody(ctx, t.store.dialect.lockClause())
		if err != nil {
			return nil, err
		}
		t.custody = custody
	}
	c := *t.custody
	return &c, nil
}

func (t *sqlTx) Contribution(ctx context.Context, donor id.Identity) (*models.Contribution, error) {
	total, err := t.store.TotalDonated(ctx, donor)
	if err != nil {
		return nil, err
	}
	return &models.Contribution{Donor: donor, Total: total}, nil
}

func (t *sqlTx) SaveCustody(ctx context.Context, custody *models.Custody) error {
	d := t.store.dialect
	query := d.rebind(`UPDATE ledger_custody SET owner = $1, balance = ` + d.amountIn("$2") + `, updated_at = $3 WHERE id = 1`)
	res, err := t.store.conn(ctx).ExecContext(ctx, query, custody.Owner.String(), custody.Balance.String(), custody.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save custody: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	c := *custody
	t.custody = &c
	return nil
}

func (t *sqlTx) SaveContribution(ctx context.Context, contribution *models.Contribution) error {
	d := t.store.dialect
	query := d.rebind(`
		INSERT INTO ledger_contributions (donor, total)
		VALUES ($1, ` + d.amountIn("$2") + `)
		ON CONFLICT (donor) DO UPDATE SET total = EXCLUDED.total
	`)
	if _, err := t.store.conn(ctx).ExecContext(ctx, query, contribution.Donor.String(), contribution.Total.String()); err != nil {
		return fmt.Errorf("save contribution: %w", err)
	}
	return nil
}

// AppendEvent takes the next Seq. Execute holds the custody lock, so no
// other unit can race for the same number.
func (t *sqlTx) AppendEvent(ctx context.Context, event *models.Event) error {
	d := t.store.dialect
	q := t.store.conn(ctx)

	var next int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_events`).Scan(&next); err != nil {
		return fmt.Errorf("next event seq: %w", err)
	}

	var previousOwner sql.NullString
	if event.PreviousOwner != nil {
		previousOwner = sql.NullString{String: event.PreviousOwner.String(), Valid: true}
	}
	query := d.rebind(`
		INSERT INTO ledger_events (seq, id, kind, topic, account, amount, message, previous_owner, occurred_at)
		VALUES ($1, $2, $3, $4, $5, ` + d.amountIn("$6") + `, $7, $8, $9)
	`)
	_, err := q.ExecContext(ctx, query,
		next,
		event.ID.String(),
		string(event.Kind),
		event.Topic,
		event.Account.String(),
		event.Amount.String(),
		d.messageArg(event.Message),
		previousOwner,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	event.Seq = uint64(next)
	return nil
}
