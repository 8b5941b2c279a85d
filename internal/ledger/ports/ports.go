// Package ports declares the persistence contract of the ledger. Stores
// implement it; the service depends only on these interfaces.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"tipjar/internal/ledger/models"
	id "tipjar/pkg/domain"
)

// Tx is the view an Execute callback gets of the ledger. Writes made through
// it become visible only if the callback returns nil.
type Tx interface {
	// Custody returns the ledger row, locked for the rest of the unit.
	// Returns sentinel.ErrNotFound before Bootstrap.
	Custody(ctx context.Context) (*models.Custody, error)
	// Contribution returns the donor's running total; unknown donors get a
	// zero record, never an error.
	Contribution(ctx context.Context, donor id.Identity) (*models.Contribution, error)
	SaveCustody(ctx context.Context, custody *models.Custody) error
	SaveContribution(ctx context.Context, contribution *models.Contribution) error
	// AppendEvent journals the event and assigns its Seq.
	AppendEvent(ctx context.Context, event *models.Event) error
}

// Store persists one ledger. Execute runs fn as a single serialized,
// all-or-nothing unit and returns fn's error unchanged.
type Store interface {
	Bootstrap(ctx context.Context, owner id.Identity, now time.Time) (*models.Custody, error)
	Execute(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Custody(ctx context.Context) (*models.Custody, error)
	TotalDonated(ctx context.Context, donor id.Identity) (id.Amount, error)
	// Events lists journaled events matching q in ascending Seq order.
	Events(ctx context.Context, q EventQuery) ([]*models.Event, error)
	// LastSeq returns the Seq of the newest journaled event, 0 when empty.
	LastSeq(ctx context.Context) (uint64, error)
	Ping(ctx context.Context) error
	Close() error
}

// EventQuery selects journaled events with Seq > After. Limit <= 0 means no
// limit; an empty Kinds matches every kind.
type EventQuery struct {
	After uint64
	Limit int
	Kinds []models.EventKind
}

// Matches reports whether e passes the kind filter.
func (q EventQuery) Matches(e *models.Event) bool {
	if len(q.Kinds) == 0 {
		return true
	}
	for _, k := range q.Kinds {
		if e.Kind == k {
			return true
		}
	}
	return false
}
