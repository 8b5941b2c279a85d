package memory

import (
	"context"
	"sync"
	"time"

	"tipjar/internal/ledger/models"
	"tipjar/internal/ledger/ports"
	id "tipjar/pkg/domain"
	"tipjar/pkg/platform/sentinel"
)

// InMemoryStore keeps one ledger in process memory. A single mutex is held
// for each Execute unit, so units never interleave.
type InMemoryStore struct {
	mu            sync.RWMutex
	custody       *models.Custody
	contributions map[id.Identity]id.Amount
	events        []*models.Event
}

// New creates an empty, not yet bootstrapped store.
func New() *InMemoryStore {
	return &InMemoryStore{
		contributions: make(map[id.Identity]id.Amount),
	}
}

// Bootstrap creates the ledger on first call; later calls return the
// existing custody untouched.
func (s *InMemoryStore) Bootstrap(_ context.Context, owner id.Identity, now time.Time) (*models.Custody, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.custody != nil {
		c := *s.custody
		return &c, nil
	}
	custody, err := models.NewCustody(owner, now)
	if err != nil {
		return nil, err
	}
	s.custody = custody
	c := *custody
	return &c, nil
}

// Execute stages every write in a memTx and applies them only when fn
// succeeds.
func (s *InMemoryStore) Execute(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, contributions: make(map[id.Identity]id.Amount)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *InMemoryStore) Custody(_ context.Context) (*models.Custody, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.custody == nil {
		return nil, sentinel.ErrNotFound
	}
	c := *s.custody
	return &c, nil
}

// TotalDonated returns zero for donors that never donated.
func (s *InMemoryStore) TotalDonated(_ context.Context, donor id.Identity) (id.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contributions[donor], nil
}

func (s *InMemoryStore) Events(_ context.Context, q ports.EventQuery) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Event{}
	// Seq n lives at index n-1.
	if q.After >= uint64(len(s.events)) {
		return out, nil
	}
	for _, e := range s.events[q.After:] {
		if !q.Matches(e) {
			continue
		}
		copied := *e
		out = append(out, &copied)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) LastSeq(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.events)), nil
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

// memTx is only used while the store mutex is held.
type memTx struct {
	store         *InMemoryStore
	custody       *models.Custody
	contributions map[id.Identity]id.Amount
	events        []*models.Event
}

func (t *memTx) Custody(context.Context) (*models.Custody, error) {
	if t.custody != nil {
		c := *t.custody
		return &c, nil
	}
	if t.store.custody == nil {
		return nil, sentinel.ErrNotFound
	}
	c := *t.store.custody
	return &c, nil
}

func (t *memTx) Contribution(_ context.Context, donor id.Identity) (*models.Contribution, error) {
	if total, ok := t.contributions[donor]; ok {
		return &models.Contribution{Donor: donor, Total: total}, nil
	}
	return &models.Contribution{Donor: donor, Total: t.store.contributions[donor]}, nil
}

func (t *memTx) SaveCustody(_ context.Context, custody *models.Custody) error {
	c := *custody
	t.custody = &c
	return nil
}

func (t *memTx) SaveContribution(_ context.Context, contribution *models.Contribution) error {
	t.contributions[contribution.Donor] = contribution.Total
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, event *models.Event) error {
	event.Seq = uint64(len(t.store.events) + len(t.events) + 1)
	copied := *event
	t.events = append(t.events, &copied)
	return nil
}

func (t *memTx) commit() {
	if t.custody != nil {
		t.store.custody = t.custody
	}
	for donor, total := range t.contributions {
		t.store.contributions[donor] = total
	}
	t.store.events = append(t.store.events, t.events...)
}
