package nonce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tipjar/internal/auth/models"
	id "tipjar/pkg/domain"
	"tipjar/pkg/platform/sentinel"
)

// Error contract shared by both stores:
//   - Save replaces any pending challenge for the same address
//   - Consume removes the challenge whether or not it has expired
//   - Consume returns ErrNotFound for an unknown address and ErrExpired for
//     a challenge past its expiry

// InMemoryStore keeps pending challenges in a map. Expired entries are
// dropped lazily on Consume and by Sweep.
type InMemoryStore struct {
	mu         sync.Mutex
	challenges map[id.Identity]*models.Challenge
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{challenges: make(map[id.Identity]*models.Challenge)}
}

func (s *InMemoryStore) Save(_ context.Context, challenge *models.Challenge) error {
	if challenge == nil {
		return fmt.Errorf("nil challenge: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *challenge
	s.challenges[challenge.Address] = &stored
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, address id.Identity, now time.Time) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[address]
	if !ok {
		return nil, fmt.Errorf("challenge for %s: %w", address, sentinel.ErrNotFound)
	}
	delete(s.challenges, address)
	if challenge.IsExpired(now) {
		return nil, fmt.Errorf("challenge for %s: %w", address, sentinel.ErrExpired)
	}
	return challenge, nil
}

// Sweep drops expired challenges and reports how many were removed.
func (s *InMemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for addr, challenge := range s.challenges {
		if challenge.IsExpired(now) {
			delete(s.challenges, addr)
			removed++
		}
	}
	return removed, nil
}
