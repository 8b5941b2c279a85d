package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	authmetrics "tipjar/internal/auth/metrics"
	"tipjar/internal/auth/models"
	"tipjar/internal/auth/service/mocks"
	"tipjar/internal/auth/store/nonce"
	jwttoken "tipjar/internal/jwt_token"
	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
	"tipjar/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	service *Service
	jwt     *jwttoken.JWTService
	metrics *authmetrics.Metrics
	key     *ecdsa.PrivateKey
	address id.Identity
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	var err error
	s.key, err = crypto.GenerateKey()
	s.Require().NoError(err)
	s.address = id.IdentityFromAddress(crypto.PubkeyToAddress(s.key.PublicKey))
	s.now = time.Now().UTC().Truncate(time.Second)
	s.jwt = jwttoken.NewJWTService("test-signing-key", "tipjar", "tipjar-api")
	s.metrics = authmetrics.New(prometheus.NewRegistry())

	nonces := 0
	s.service, err = New(nonce.NewInMemory(), s.jwt,
		WithMetrics(s.metrics),
		WithChallengeTTL(time.Minute),
		WithTokenTTL(30*time.Minute),
		withNonceSource(func() string {
			nonces++
			return "nonce-" + string(rune('a'+nonces-1))
		}),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) ctx(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

// sign mimics a wallet's personal_sign output (v = 27/28).
func sign(key *ecdsa.PrivateKey, message string) string {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		panic(err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func (s *ServiceSuite) TestIssueChallenge() {
	c, err := s.service.IssueChallenge(s.ctx(s.now), s.address)
	s.Require().NoError(err)
	s.Equal("nonce-a", c.Nonce)
	s.Equal(s.now.Add(time.Minute), c.ExpiresAt)
	s.Contains(c.Message(), s.address.String())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ChallengesIssued))

	_, err = s.service.IssueChallenge(s.ctx(s.now), id.Identity{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestExchangeSignature() {
	s.Run("valid signature yields a token for the address", func() {
		c, err := s.service.IssueChallenge(s.ctx(s.now), s.address)
		s.Require().NoError(err)

		result, err := s.service.ExchangeSignature(s.ctx(s.now.Add(time.Second)), s.address, sign(s.key, c.Message()))
		s.Require().NoError(err)
		s.Equal("Bearer", result.TokenType)
		s.Equal(30*time.Minute, result.ExpiresIn)

		caller, err := s.jwt.ExtractIdentityFromToken(result.AccessToken)
		s.Require().NoError(err)
		s.Equal(s.address, caller)
	})

	s.Run("challenge cannot be replayed", func() {
		c, err := s.service.IssueChallenge(s.ctx(s.now), s.address)
		s.Require().NoError(err)
		sig := sign(s.key, c.Message())

		_, err = s.service.ExchangeSignature(s.ctx(s.now), s.address, sig)
		s.Require().NoError(err)
		_, err = s.service.ExchangeSignature(s.ctx(s.now), s.address, sig)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("raw recovery id is accepted", func() {
		c, err := s.service.IssueChallenge(s.ctx(s.now), s.address)
		s.Require().NoError(err)
		raw, err := crypto.Sign(accounts.TextHash([]byte(c.Message())), s.key)
		s.Require().NoError(err)

		_, err = s.service.ExchangeSignature(s.ctx(s.now), s.address, hexutil.Encode(raw))
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestExchangeSignatureRejections() {
	s.Run("no pending challenge", func() {
		_, err := s.service.ExchangeSignature(s.ctx(s.now), s.address, "0x00")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("expired challenge", func() {
		c, err := s.service.IssueChallenge(s.ctx(s.now), s.address)
		s.Require().NoError(err)

		_, err = s.service.ExchangeSignature(s.ctx(s.now.Add(2*time.Minute)), s.address, sign(s.key, c.Message()))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("signature from another key spends the challenge", func() {
		c, err := s.service.IssueChallenge(s.ctx(s.now), s.address)
		s.Require().NoError(err)
		other, err := crypto.GenerateKey()
		s.Require().NoError(err)

		_, err = s.service.ExchangeSignature(s.ctx(s.now), s.address, sign(other, c.Message()))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = s.service.ExchangeSignature(s.ctx(s.now), s.address, sign(s.key, c.Message()))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "challenge was consumed by the failed attempt")
	})

	s.Run("signature over a different nonce", func() {
		stale, err := s.service.IssueChallenge(s.ctx(s.now), s.address)
		s.Require().NoError(err)
		_, err = s.service.IssueChallenge(s.ctx(s.now), s.address)
		s.Require().NoError(err)

		_, err = s.service.ExchangeSignature(s.ctx(s.now), s.address, sign(s.key, stale.Message()))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("malformed signature", func() {
		_, err := s.service.IssueChallenge(s.ctx(s.now), s.address)
		s.Require().NoError(err)

		_, err = s.service.ExchangeSignature(s.ctx(s.now), s.address, "0xdeadbeef")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.GreaterOrEqual(testutil.ToFloat64(s.metrics.SignIns.WithLabelValues(authmetrics.ResultMismatch)), 2.0)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SignIns.WithLabelValues(authmetrics.ResultExpired)))
}

func TestService_Dependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockChallengeStore(ctrl)
	issuer := mocks.NewMockTokenIssuer(ctrl)

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	address := id.IdentityFromAddress(crypto.PubkeyToAddress(key.PublicKey))
	svc, err := New(store, issuer)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("store save failure is internal", func(t *testing.T) {
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
		_, err := svc.IssueChallenge(context.Background(), address)
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("store consume failure is internal", func(t *testing.T) {
		store.EXPECT().Consume(gomock.Any(), address, gomock.Any()).Return(nil, errors.New("redis down"))
		_, err := svc.ExchangeSignature(context.Background(), address, "0x00")
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("token issuer failure is internal", func(t *testing.T) {
		challenge, err := models.NewChallenge(address, "n", time.Now(), time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		store.EXPECT().Consume(gomock.Any(), address, gomock.Any()).Return(challenge, nil)
		issuer.EXPECT().GenerateAccessToken(address, DefaultTokenTTL).Return("", errors.New("sign failed"))

		_, err = svc.ExchangeSignature(context.Background(), address, sign(key, challenge.Message()))
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("nil dependencies", func(t *testing.T) {
		if _, err := New(nil, issuer); err == nil {
			t.Fatal("expected error for nil store")
		}
		if _, err := New(store, nil); err == nil {
			t.Fatal("expected error for nil issuer")
		}
	})
}
