package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authmetrics "tipjar/internal/auth/metrics"
	"tipjar/internal/auth/models"
	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
	"tipjar/pkg/platform/sentinel"
	"tipjar/pkg/requestcontext"
)

const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultTokenTTL     = time.Hour
	tokenTypeBearer     = "Bearer"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ChallengeStore,TokenIssuer

// ChallengeStore holds at most one pending challenge per address.
type ChallengeStore interface {
	Save(ctx context.Context, challenge *models.Challenge) error
	Consume(ctx context.Context, address id.Identity, now time.Time) (*models.Challenge, error)
}

// TokenIssuer signs access tokens for a proven caller.
type TokenIssuer interface {
	GenerateAccessToken(caller id.Identity, expiresIn time.Duration) (string, error)
}

// Service runs the wallet sign-in exchange: hand out a nonce, then trade a
// personal_sign signature over it for an access token.
type Service struct {
	challenges   ChallengeStore
	tokens       TokenIssuer
	challengeTTL time.Duration
	tokenTTL     time.Duration
	newNonce     func() string
	logger       *slog.Logger
	metrics      *authmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *authmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.challengeTTL = ttl
		}
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func withNonceSource(fn func() string) Option {
	return func(s *Service) {
		s.newNonce = fn
	}
}

func New(challenges ChallengeStore, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if challenges == nil {
		return nil, errors.New("challenge store is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	s := &Service{
		challenges:   challenges,
		tokens:       tokens,
		challengeTTL: DefaultChallengeTTL,
		tokenTTL:     DefaultTokenTTL,
		newNonce:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueChallenge stores a fresh nonce for address, replacing any pending one.
func (s *Service) IssueChallenge(ctx context.Context, address id.Identity) (*models.Challenge, error) {
	challenge, err := models.NewChallenge(address, s.newNonce(), requestcontext.Now(ctx), s.challengeTTL)
	if err != nil {
		return nil, err
	}
	if err := s.challenges.Save(ctx, challenge); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store challenge")
	}
	s.metrics.IncrementChallenge()
	s.logAudit(ctx, "auth_challenge_issued", "address", address.String())
	return challenge, nil
}

// ExchangeSignature consumes the pending challenge for address and checks
// that signature recovers to it. The challenge is spent even when the
// signature is rejected.
func (s *Service) ExchangeSignature(ctx context.Context, address id.Identity, signature string) (*models.TokenResult, error) {
	now := requestcontext.Now(ctx)
	challenge, err := s.challenges.Consume(ctx, address, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, s.rejectSignIn(ctx, address, authmetrics.ResultNoNonce,
				dErrors.New(dErrors.CodeUnauthorized, "no pending challenge for address"))
		case errors.Is(err, sentinel.ErrExpired):
			return nil, s.rejectSignIn(ctx, address, authmetrics.ResultExpired,
				dErrors.New(dErrors.CodeUnauthorized, "challenge has expired"))
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load challenge")
		}
	}

	signer, err := RecoverSigner(challenge.Message(), signature)
	if err != nil {
		return nil, s.rejectSignIn(ctx, address, authmetrics.ResultBadSig, err)
	}
	if signer != address {
		return nil, s.rejectSignIn(ctx, address, authmetrics.ResultMismatch,
			dErrors.New(dErrors.CodeUnauthorized, "signature does not match address"))
	}

	token, err := s.tokens.GenerateAccessToken(address, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	s.metrics.IncrementSignIn(authmetrics.ResultIssued)
	s.logAudit(ctx, "auth_token_issued", "address", address.String())
	return &models.TokenResult{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   s.tokenTTL,
		Address:     address,
	}, nil
}

func (s *Service) rejectSignIn(ctx context.Context, address id.Identity, result string, err error) error {
	s.metrics.IncrementSignIn(result)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "sign-in rejected",
			"address", address.String(),
			"reason", result,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return err
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit", "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, event, args...)
}
