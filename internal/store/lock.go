package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const lockPoll = 50 * time.Millisecond

// Locker hands out named cross-process locks backed by SetNX.
type Locker struct {
	store Store
	lease time.Duration
	poll  time.Duration
}

// NewLocker creates a locker. lease bounds how long a lock outlives a
// crashed holder.
func NewLocker(s Store, lease time.Duration) *Locker {
	return &Locker{store: s, lease: lease, poll: lockPoll}
}

// Lock is a held lock. Release it exactly once.
type Lock struct {
	store Store
	key   string
	token string
}

// Acquire polls until the lock is taken or wait elapses, in which case it
// returns ErrLockTimeout.
func (l *Locker) Acquire(ctx context.Context, key string, wait time.Duration) (*Lock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.store.SetNX(ctx, key, token, l.lease)
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return &Lock{store: l.store, key: key, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(min(l.poll, time.Until(deadline))):
		}
	}
}

// Release deletes the lock if it is still ours. A lock whose lease ran out
// and was taken by someone else is left alone.
func (lk *Lock) Release(ctx context.Context) error {
	if _, err := lk.store.CompareAndDelete(ctx, lk.key, lk.token); err != nil {
		return fmt.Errorf("release %s: %w", lk.key, err)
	}
	return nil
}

// Key returns the locked key.
func (lk *Lock) Key() string { return lk.key }
