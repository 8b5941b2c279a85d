package models

import (
	"fmt"
	"strings"
	"time"

	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
)

// Challenge is a single-use sign-in nonce bound to one address.
type Challenge struct {
	Address   id.Identity `json:"address"`
	Nonce     string      `json:"nonce"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// NewChallenge returns a challenge valid for ttl from now.
func NewChallenge(address id.Identity, nonce string, now time.Time, ttl time.Duration) (*Challenge, error) {
	if address.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	if strings.TrimSpace(nonce) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "nonce is required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "challenge ttl must be positive")
	}
	return &Challenge{
		Address:   address,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Message is the exact text the wallet signs with personal_sign.
func (c *Challenge) Message() string {
	return fmt.Sprintf("Sign in to tipjar\nAddress: %s\nNonce: %s", c.Address.String(), c.Nonce)
}

func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type ChallengeRequest struct {
	Address string `json:"address"`
}

type ChallengeResponse struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewChallengeResponse(c *Challenge) ChallengeResponse {
	return ChallengeResponse{
		Address:   c.Address.String(),
		Nonce:     c.Nonce,
		Message:   c.Message(),
		ExpiresAt: c.ExpiresAt,
	}
}

type TokenRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// TokenResult is issued after a successful signature check.
type TokenResult struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   time.Duration `json:"-"`
	Address     id.Identity   `json:"address"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Address     string `json:"address"`
}

func NewTokenResponse(t *TokenResult) TokenResponse {
	return TokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresIn:   int(t.ExpiresIn.Seconds()),
		Address:     t.Address.String(),
	}
}
