package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ledgermetrics "tipjar/internal/ledger/metrics"
	"tipjar/internal/ledger/models"
	"tipjar/internal/ledger/ports"
	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
	"tipjar/pkg/platform/sentinel"
	"tipjar/pkg/requestcontext"
)

const (
	DefaultEventLimit = 50
	MaxEventLimit     = 500
)

const (
	opDonate            = "donate"
	opWithdraw          = "withdraw"
	opWithdrawAll       = "withdraw_all"
	opTransferOwnership = "transfer_ownership"
)

// EventPublisher receives events after their unit has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.Event) error
}

// Service orchestrates the custody ledger. Every mutation runs as one
// Store.Execute unit: checks first, then mutation and event journaling.
type Service struct {
	store       ports.Store
	minDonation id.Amount
	logger      *slog.Logger
	metrics     *ledgermetrics.Metrics
	publisher   EventPublisher
	tracer      trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithMinDonation overrides DefaultMinDonation. Zero accepts every amount.
func WithMinDonation(minimum id.Amount) Option {
	return func(s *Service) {
		s.minDonation = minimum
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(store ports.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	s := &Service{
		store:       store,
		minDonation: models.DefaultMinDonation,
		tracer:      otel.Tracer("tipjar/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Init creates the ledger with owner unless it already exists, and returns
// the custody in effect.
func (s *Service) Init(ctx context.Context, owner id.Identity) (*models.Custody, error) {
	custody, err := s.store.Bootstrap(ctx, owner, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidOwner) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize ledger")
	}
	if custody.Owner != owner && s.logger != nil {
		s.logger.WarnContext(ctx, "ledger already initialized with a different owner",
			"configured_owner", owner.String(),
			"owner", custody.Owner.String(),
		)
	}
	s.setBalance(custody.Balance)
	return custody, nil
}

// MinDonation returns the smallest accepted donation.
func (s *Service) MinDonation() id.Amount {
	return s.minDonation
}

// Donate credits amount to the custody balance and to caller's running total.
func (s *Service) Donate(ctx context.Context, caller id.Identity, amount id.Amount, message string) (*models.Event, error) {
	ctx, span := s.startSpan(ctx, opDonate, caller, amount)
	defer span.End()
	start := time.Now()
	defer s.observe(opDonate, start)

	if caller.IsNil() {
		return nil, s.reject(ctx, span, opDonate, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required"))
	}

	now := requestcontext.Now(ctx)
	var event *models.Event
	var balance id.Amount
	err := s.store.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		custody, err := tx.Custody(ctx)
		if err != nil {
			return err
		}
		contribution, err := tx.Contribution(ctx, caller)
		if err != nil {
			return err
		}
		if err := custody.CanDonate(amount, s.minDonation); err != nil {
			return err
		}
		if err := contribution.Add(amount); err != nil {
			return err
		}
		if err := custody.ApplyDonation(amount, now); err != nil {
			return err
		}
		if err := tx.SaveCustody(ctx, custody); err != nil {
			return err
		}
		if err := tx.SaveContribution(ctx, contribution); err != nil {
			return err
		}
		event = models.NewTipEvent(caller, amount, message, now)
		balance = custody.Balance
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, s.reject(ctx, span, opDonate, wrapLedgerErr(err, "failed to record donation"))
	}

	if s.metrics != nil {
		s.metrics.IncrementDonation(amount)
	}
	s.setBalance(balance)
	s.logAudit(ctx, string(models.EventNewTip),
		"donor", caller.String(),
		"amount_wei", amount.String(),
		"seq", event.Seq,
	)
	s.publish(ctx, event)
	return event, nil
}

// Withdraw releases amount to the owner. Checks run owner, then non-zero
// amount, then balance.
func (s *Service) Withdraw(ctx context.Context, caller id.Identity, amount id.Amount) (*models.Event, error) {
	ctx, span := s.startSpan(ctx, opWithdraw, caller, amount)
	defer span.End()
	start := time.Now()
	defer s.observe(opWithdraw, start)

	now := requestcontext.Now(ctx)
	var event *models.Event
	var balance id.Amount
	err := s.store.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		custody, err := tx.Custody(ctx)
		if err != nil {
			return err
		}
		if err := custody.CanWithdraw(caller, amount); err != nil {
			return err
		}
		if err := custody.ApplyWithdrawal(amount, now); err != nil {
			return err
		}
		if err := tx.SaveCustody(ctx, custody); err != nil {
			return err
		}
		event = models.NewWithdrawalEvent(custody.Owner, amount, now)
		balance = custody.Balance
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, s.reject(ctx, span, opWithdraw, wrapLedgerErr(err, "failed to record withdrawal"))
	}

	s.afterWithdrawal(ctx, event, balance)
	return event, nil
}

// WithdrawAll releases the whole balance to the owner. An empty balance is
// not an error: a zero Withdrawal event is still emitted.
func (s *Service) WithdrawAll(ctx context.Context, caller id.Identity) (*models.Event, error) {
	ctx, span := s.startSpan(ctx, opWithdrawAll, caller, id.Amount{})
	defer span.End()
	start := time.Now()
	defer s.observe(opWithdrawAll, start)

	now := requestcontext.Now(ctx)
	var event *models.Event
	err := s.store.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		custody, err := tx.Custody(ctx)
		if err != nil {
			return err
		}
		if err := custody.CanWithdrawAll(caller); err != nil {
			return err
		}
		released := custody.ApplyWithdrawAll(now)
		if err := tx.SaveCustody(ctx, custody); err != nil {
			return err
		}
		event = models.NewWithdrawalEvent(custody.Owner, released, now)
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, s.reject(ctx, span, opWithdrawAll, wrapLedgerErr(err, "failed to record withdrawal"))
	}

	span.SetAttributes(attribute.String("ledger.released_wei", event.Amount.String()))
	s.afterWithdrawal(ctx, event, id.Amount{})
	return event, nil
}

// TransferOwnership hands custody control to newOwner. Only the current
// owner may call it; transferring to oneself is accepted.
func (s *Service) TransferOwnership(ctx context.Context, caller, newOwner id.Identity) (*models.Event, error) {
	ctx, span := s.startSpan(ctx, opTransferOwnership, caller, id.Amount{})
	defer span.End()
	start := time.Now()
	defer s.observe(opTransferOwnership, start)

	now := requestcontext.Now(ctx)
	var event *models.Event
	err := s.store.Execute(ctx, func(ctx context.Context, tx ports.Tx) error {
		custody, err := tx.Custody(ctx)
		if err != nil {
			return err
		}
		if err := custody.CanTransferOwnership(caller, newOwner); err != nil {
			return err
		}
		previous := custody.ApplyOwnershipTransfer(newOwner, now)
		if err := tx.SaveCustody(ctx, custody); err != nil {
			return err
		}
		event = models.NewOwnershipTransferredEvent(previous, newOwner, now)
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, s.reject(ctx, span, opTransferOwnership, wrapLedgerErr(err, "failed to transfer ownership"))
	}

	s.logAudit(ctx, string(models.EventOwnershipTransferred),
		"previous_owner", event.PreviousOwner.String(),
		"new_owner", newOwner.String(),
		"seq", event.Seq,
	)
	s.publish(ctx, event)
	return event, nil
}

// Balance returns the funds currently held.
func (s *Service) Balance(ctx context.Context) (id.Amount, error) {
	custody, err := s.store.Custody(ctx)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err, "failed to load balance")
	}
	return custody.Balance, nil
}

// Owner returns the identity currently allowed to withdraw.
func (s *Service) Owner(ctx context.Context) (id.Identity, error) {
	custody, err := s.store.Custody(ctx)
	if err != nil {
		return id.Identity{}, wrapLedgerErr(err, "failed to load owner")
	}
	return custody.Owner, nil
}

// TotalDonated returns donor's cumulative donations; zero if it never donated.
func (s *Service) TotalDonated(ctx context.Context, donor id.Identity) (id.Amount, error) {
	total, err := s.store.TotalDonated(ctx, donor)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err, "failed to load donor total")
	}
	return total, nil
}

// Events lists committed events after the given seq. limit <= 0 uses
// DefaultEventLimit; larger than MaxEventLimit is clamped.
func (s *Service) Events(ctx context.Context, after uint64, limit int, kinds ...models.EventKind) ([]*models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	for _, k := range kinds {
		if !k.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown event kind "+string(k))
		}
	}
	events, err := s.store.Events(ctx, ports.EventQuery{After: after, Limit: limit, Kinds: kinds})
	if err != nil {
		return nil, wrapLedgerErr(err, "failed to list events")
	}
	return events, nil
}

// LastSeq returns the Seq of the newest committed event, 0 before any.
func (s *Service) LastSeq(ctx context.Context) (uint64, error) {
	seq, err := s.store.LastSeq(ctx)
	if err != nil {
		return 0, wrapLedgerErr(err, "failed to load event head")
	}
	return seq, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) afterWithdrawal(ctx context.Context, event *models.Event, balance id.Amount) {
	if s.metrics != nil {
		s.metrics.IncrementWithdrawal(event.Amount)
	}
	s.setBalance(balance)
	s.logAudit(ctx, string(models.EventWithdrawal),
		"owner", event.Account.String(),
		"amount_wei", event.Amount.String(),
		"seq", event.Seq,
	)
	s.publish(ctx, event)
}

// publish hands a committed event to the publisher. Failures are logged
// only: the event is already journaled and can be replayed from Events.
func (s *Service) publish(ctx context.Context, event *models.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish ledger event",
			"error", err,
			"kind", string(event.Kind),
			"seq", event.Seq,
		)
	}
}

func (s *Service) reject(ctx context.Context, span trace.Span, operation string, err error) error {
	code := dErrors.CodeOf(err)
	span.SetStatus(codes.Error, string(code))
	span.RecordError(err)
	if s.metrics != nil {
		s.metrics.IncrementRejection(operation, string(code))
	}
	if s.logger != nil {
		level := slog.LevelInfo
		if code == dErrors.CodeInternal {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "ledger operation rejected",
			"operation", operation,
			"reason", string(code),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return err
}

func (s *Service) startSpan(ctx context.Context, operation string, caller id.Identity, amount id.Amount) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ledger."+operation, trace.WithAttributes(
		attribute.String("ledger.caller", caller.String()),
		attribute.String("ledger.amount_wei", amount.String()),
	))
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}

// setBalance updates the gauge. A zero value after withdraw-all is exact.
func (s *Service) setBalance(balance id.Amount) {
	if s.metrics != nil {
		s.metrics.SetBalance(balance)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}

// wrapLedgerErr keeps coded domain errors and translates store failures.
func wrapLedgerErr(err error, msg string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "ledger has not been initialized")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
