package otp

import (
	"context"
	"crypto/subtle"
	"errors"
)

type ErrorKind string

const (
	KindNoActiveChallenge ErrorKind = "no_active_challenge"
	KindAlreadyUsed       ErrorKind = "already_used"
	KindExpired           ErrorKind = "expired"
	KindMismatch          ErrorKind = "mismatch"
	KindStorageFailure    ErrorKind = "storage_failure"
)

var (
	ErrNoActiveChallenge = errors.New("no active verification code")
	ErrAlreadyUsed       = errors.New("verification code has already been used")
	ErrExpired           = errors.New("verification code has expired")
	ErrMismatch          = errors.New("verification code does not match")
	ErrStorageFailure    = errors.New("challenge storage failure")
)

var kindErrors = map[ErrorKind]error{
	KindNoActiveChallenge: ErrNoActiveChallenge,
	KindAlreadyUsed:       ErrAlreadyUsed,
	KindExpired:           ErrExpired,
	KindMismatch:          ErrMismatch,
	KindStorageFailure:    ErrStorageFailure,
}

type VerificationResult struct {
	Valid   bool      `json:"valid"`
	Error   ErrorKind `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`

	// Method and Destination identify the consumed challenge on success.
	Method      Method `json:"-"`
	Destination string `json:"-"`
}

// Err returns the sentinel error matching the result kind, or nil for a valid result.
func (r VerificationResult) Err() error {
	if r.Valid {
		return nil
	}
	return kindErrors[r.Error]
}

func failed(kind ErrorKind) VerificationResult {
	return VerificationResult{Error: kind, Message: kindErrors[kind].Error()}
}

type Verifier struct {
	store *Store
}

func NewVerifier(store *Store) *Verifier {
	return &Verifier{store: store}
}

// Verify consumes the stored challenge when submitted matches it. An expired
// challenge is removed as a side effect; a mismatch leaves it in place.
func (v *Verifier) Verify(ctx context.Context, submitted string) VerificationResult {
	s := v.store
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, err := s.load(ctx)
	if err != nil {
		return failed(KindStorageFailure)
	}
	if challenge == nil {
		return failed(KindNoActiveChallenge)
	}
	if challenge.Used {
		return failed(KindAlreadyUsed)
	}
	if challenge.IsExpired(s.clock.Now()) {
		if err := s.clear(ctx); err != nil {
			return failed(KindStorageFailure)
		}
		return failed(KindExpired)
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(challenge.Code)) != 1 {
		return failed(KindMismatch)
	}
	if err := s.markUsed(ctx, challenge); err != nil {
		return failed(KindStorageFailure)
	}

	return VerificationResult{Valid: true, Method: challenge.Method, Destination: challenge.Destination}
}

// RemainingSeconds reports the time left on the stored challenge.
func (v *Verifier) RemainingSeconds(ctx context.Context) int {
	return v.store.RemainingSeconds(ctx)
}
