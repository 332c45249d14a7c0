package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tech-arch1tect/otpgate/internal/clock"
	"github.com/tech-arch1tect/otpgate/testutils"
)

var (
	testStart     = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	errDiskFull   = errors.New("disk I/O error")
	errConnClosed = errors.New("connection closed")
)

func newTestStore(t *testing.T) (*Store, *clock.Fake) {
	t.Helper()
	db := testutils.SetupTestDB(t, &Challenge{})
	clk := clock.NewFake(testStart)
	return NewStore(NewGormBackend(db), clk, DefaultValidity), clk
}

// faultyBackend wraps a working backend and fails the selected operations.
type faultyBackend struct {
	Backend
	loadErr   error
	saveErr   error
	deleteErr error
}

func (b *faultyBackend) Load(ctx context.Context) (*Challenge, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.Backend.Load(ctx)
}

func (b *faultyBackend) Save(ctx context.Context, challenge *Challenge) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.Backend.Save(ctx, challenge)
}

func (b *faultyBackend) Delete(ctx context.Context) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.Backend.Delete(ctx)
}

// memoryBackend keeps the slot in memory.
type memoryBackend struct {
	mu        sync.Mutex
	challenge *Challenge
}

func (b *memoryBackend) Load(context.Context) (*Challenge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.challenge == nil {
		return nil, nil
	}
	c := *b.challenge
	return &c, nil
}

func (b *memoryBackend) Save(_ context.Context, challenge *Challenge) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := *challenge
	b.challenge = &c
	return nil
}

func (b *memoryBackend) Delete(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.challenge = nil
	return nil
}

type recordingDispatcher struct {
	mu         sync.Mutex
	deliveries []Delivery
	err        error
}

func (d *recordingDispatcher) Deliver(_ context.Context, delivery Delivery) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery)
	return d.err
}

func (d *recordingDispatcher) last() Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deliveries[len(d.deliveries)-1]
}
