package otp

import "context"

// Backend persists the single challenge slot. Load returns nil, nil when the
// slot is empty and Delete on an empty slot is not an error.
type Backend interface {
	Load(ctx context.Context) (*Challenge, error)
	Save(ctx context.Context, challenge *Challenge) error
	Delete(ctx context.Context) error
}
