package otp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tech-arch1tect/otpgate/internal/clock"
)

const DefaultValidity = 10 * time.Minute

// Store owns the single challenge slot. Every method takes the same mutex, so
// overlapping callers observe the slot one operation at a time.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	clock    clock.Clock
	validity time.Duration
}

func NewStore(backend Backend, clk clock.Clock, validity time.Duration) *Store {
	if clk == nil {
		clk = clock.New()
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Store{
		backend:  backend,
		clock:    clk,
		validity: validity,
	}
}

func (s *Store) Validity() time.Duration {
	return s.validity
}

// Save replaces whatever challenge is stored with a fresh, unused one.
func (s *Store) Save(ctx context.Context, code string, method Method, destination string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	challenge := &Challenge{
		ID:          ChallengeID,
		Code:        code,
		Method:      method,
		Destination: destination,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.validity),
	}

	if err := s.backend.Save(ctx, challenge); err != nil {
		return nil, storageFailure("save", err)
	}
	return challenge, nil
}

func (s *Store) Read(ctx context.Context) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(ctx)
}

// RemainingSeconds is 0 when nothing is stored, the window has passed or the
// slot cannot be read.
func (s *Store) RemainingSeconds(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, err := s.load(ctx)
	if err != nil || challenge == nil {
		return 0
	}
	return remaining(challenge, s.clock.Now())
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clear(ctx)
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, err := s.load(ctx)
	if err != nil || challenge == nil {
		return nil, err
	}

	now := s.clock.Now()
	return &Stats{
		Exists:        true,
		Used:          challenge.Used,
		Expired:       challenge.IsExpired(now),
		TimeRemaining: remaining(challenge, now),
		Method:        challenge.Method,
		Destination:   challenge.Destination,
	}, nil
}

// MarkUsed persists the used flag on challenge. A challenge that is already
// used is left as it is.
func (s *Store) MarkUsed(ctx context.Context, challenge *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.markUsed(ctx, challenge)
}

func (s *Store) load(ctx context.Context) (*Challenge, error) {
	challenge, err := s.backend.Load(ctx)
	if err != nil {
		return nil, storageFailure("read", err)
	}
	return challenge, nil
}

func (s *Store) clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx); err != nil {
		return storageFailure("clear", err)
	}
	return nil
}

func (s *Store) markUsed(ctx context.Context, challenge *Challenge) error {
	if challenge.Used {
		return nil
	}

	usedAt := s.clock.Now()
	updated := *challenge
	updated.Used = true
	updated.UsedAt = &usedAt

	if err := s.backend.Save(ctx, &updated); err != nil {
		return storageFailure("mark used", err)
	}
	*challenge = updated
	return nil
}

func remaining(challenge *Challenge, now time.Time) int {
	left := challenge.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: failed to %s challenge: %w", ErrStorageFailure, op, err)
}
