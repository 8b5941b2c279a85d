package sqlstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"tipjar/internal/ledger/models"
	"tipjar/internal/ledger/ports"
	id "tipjar/pkg/domain"
	"tipjar/pkg/platform/sentinel"
)

// storeSuite runs the same behaviour checks against every dialect.
type storeSuite struct {
	suite.Suite
	store *Store
	reset func()
	owner id.Identity
	alice id.Identity
	now   time.Time
}

func (s *storeSuite) SetupTest() {
	if s.reset != nil {
		s.reset()
	}
	s.owner = id.Identity{0xaa, 0x01}
	s.alice = id.Identity{0xbb, 0x02}
	s.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func (s *storeSuite) bootstrap() {
	_, err := s.store.Bootstrap(context.Background(), s.owner, s.now)
	s.Require().NoError(err)
}

func (s *storeSuite) donate(amount uint64, message string) {
	err := s.store.Execute(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		custody, err := tx.Custody(ctx)
		if err != nil {
			return err
		}
		if err := custody.ApplyDonation(id.NewAmount(amount), s.now); err != nil {
			return err
		}
		if err := tx.SaveCustody(ctx, custody); err != nil {
			return err
		}
		contribution, err := tx.Contribution(ctx, s.alice)
		if err != nil {
			return err
		}
		if err := contribution.Add(id.NewAmount(amount)); err != nil {
			return err
		}
		if err := tx.SaveContribution(ctx, contribution); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, models.NewTipEvent(s.alice, id.NewAmount(amount), message, s.now))
	})
	s.Require().NoError(err)
}

func (s *storeSuite) TestCustodyMissingBeforeBootstrap() {
	_, err := s.store.Custody(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeSuite) TestBootstrapIsIdempotent() {
	s.bootstrap()
	custody, err := s.store.Bootstrap(context.Background(), s.alice, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(s.owner, custody.Owner)
	s.True(custody.Balance.IsZero())
}

func (s *storeSuite) TestExecuteCommits() {
	s.bootstrap()
	s.donate(1500, "thanks")
	s.donate(500, "")
	ctx := context.Background()

	custody, err := s.store.Custody(ctx)
	s.Require().NoError(err)
	s.Equal("2000", custody.Balance.String())

	total, err := s.store.TotalDonated(ctx, s.alice)
	s.Require().NoError(err)
	s.Equal("2000", total.String())

	events, err := s.store.Events(ctx, ports.EventQuery{})
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(uint64(1), events[0].Seq)
	s.Equal(models.EventNewTip, events[0].Kind)
	s.Equal(models.EventNewTip.Topic(), events[0].Topic)
	s.Equal("thanks", events[0].Message)
	s.Equal(s.alice, events[0].Account)
	s.True(events[0].OccurredAt.Equal(s.now))
	s.Equal(uint64(2), events[1].Seq)
}

func (s *storeSuite) TestExecuteRollsBack() {
	s.bootstrap()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.store.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		custody, err := tx.Custody(ctx)
		s.Require().NoError(err)
		s.Require().NoError(custody.ApplyDonation(id.NewAmount(10), s.now))
		s.Require().NoError(tx.SaveCustody(ctx, custody))
		s.Require().NoError(tx.SaveContribution(ctx, &models.Contribution{Donor: s.alice, Total: id.NewAmount(10)}))
		s.Require().NoError(tx.AppendEvent(ctx, models.NewTipEvent(s.alice, id.NewAmount(10), "", s.now)))
		return boom
	})
	s.ErrorIs(err, boom)

	custody, err := s.store.Custody(ctx)
	s.Require().NoError(err)
	s.True(custody.Balance.IsZero())
	total, err := s.store.TotalDonated(ctx, s.alice)
	s.Require().NoError(err)
	s.True(total.IsZero())
	events, err := s.store.Events(ctx, ports.EventQuery{})
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *storeSuite) TestLargeAmountsRoundTrip() {
	s.bootstrap()
	ctx := context.Background()
	max := id.MaxAmount()

	err := s.store.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		custody, err := tx.Custody(ctx)
		if err != nil {
			return err
		}
		if err := custody.ApplyDonation(max, s.now); err != nil {
			return err
		}
		return tx.SaveCustody(ctx, custody)
	})
	s.Require().NoError(err)

	custody, err := s.store.Custody(ctx)
	s.Require().NoError(err)
	s.True(custody.Balance.Eq(max))
}

func (s *storeSuite) TestOwnershipEventRoundTrip() {
	s.bootstrap()
	ctx := context.Background()

	err := s.store.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		custody, err := tx.Custody(ctx)
		if err != nil {
			return err
		}
		previous := custody.ApplyOwnershipTransfer(s.alice, s.now)
		if err := tx.SaveCustody(ctx, custody); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, models.NewOwnershipTransferredEvent(previous, s.alice, s.now))
	})
	s.Require().NoError(err)

	custody, err := s.store.Custody(ctx)
	s.Require().NoError(err)
	s.Equal(s.alice, custody.Owner)

	events, err := s.store.Events(ctx, ports.EventQuery{})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Require().NotNil(events[0].PreviousOwner)
	s.Equal(s.owner, *events[0].PreviousOwner)
}

func (s *storeSuite) TestEventsPagingAndKinds() {
	s.bootstrap()
	ctx := context.Background()
	for i := range 4 {
		s.donate(uint64(i+1), "")
	}
	s.Require().NoError(s.store.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.AppendEvent(ctx, models.NewWithdrawalEvent(s.owner, id.NewAmount(10), s.now))
	}))

	page, err := s.store.Events(ctx, ports.EventQuery{After: 1, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(uint64(2), page[0].Seq)
	s.Equal(uint64(3), page[1].Seq)

	withdrawals, err := s.store.Events(ctx, ports.EventQuery{Kinds: []models.EventKind{models.EventWithdrawal}})
	s.Require().NoError(err)
	s.Require().Len(withdrawals, 1)
	s.Equal(uint64(5), withdrawals[0].Seq)

	both, err := s.store.Events(ctx, ports.EventQuery{After: 3, Kinds: []models.EventKind{models.EventNewTip, models.EventWithdrawal}})
	s.Require().NoError(err)
	s.Len(both, 2)
}

func (s *storeSuite) TestConcurrentExecuteDoesNotLoseUpdates() {
	s.bootstrap()
	const workers = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.Execute(context.Background(), func(ctx context.Context, tx ports.Tx) error {
				custody, err := tx.Custody(ctx)
				if err != nil {
					return err
				}
				if err := custody.ApplyDonation(id.NewAmount(1), s.now); err != nil {
					return err
				}
				if err := tx.SaveCustody(ctx, custody); err != nil {
					return err
				}
				return tx.AppendEvent(ctx, models.NewTipEvent(s.alice, id.NewAmount(1), "", s.now))
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	ctx := context.Background()
	custody, err := s.store.Custody(ctx)
	s.Require().NoError(err)
	s.Equal("20", custody.Balance.String())

	events, err := s.store.Events(ctx, ports.EventQuery{})
	s.Require().NoError(err)
	s.Require().Len(events, workers)
	for i, e := range events {
		s.Equal(uint64(i+1), e.Seq)
	}
}

func (s *storeSuite) TestMessageStoredVerbatim() {
	s.bootstrap()
	messages := []string{"", "thanks \u0000 for the stream", "emoji 🎉 and\nnewlines"}
	for _, m := range messages {
		s.donate(1, m)
	}

	events, err := s.store.Events(context.Background(), ports.EventQuery{})
	s.Require().NoError(err)
	s.Require().Len(events, len(messages))
	for i, m := range messages {
		s.Equal(m, events[i].Message)
	}
}

func (s *storeSuite) TestLastSeq() {
	seq, err := s.store.LastSeq(context.Background())
	s.Require().NoError(err)
	s.Zero(seq)

	s.bootstrap()
	s.donate(1, "")
	s.donate(2, "")
	seq, err = s.store.LastSeq(context.Background())
	s.Require().NoError(err)
	s.Equal(uint64(2), seq)
}
