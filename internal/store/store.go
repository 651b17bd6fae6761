package store

import (
	"context"
	"fmt"
	"time"
)

// Store is the shared key-value store all room state lives in. Every
// method is a single atomic round-trip; callers coordinate through these
// primitives only, never through process-local locks.
type Store interface {
	// SetNX sets key to value only if it is absent. ttl 0 means no expiry.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrNil if key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Exists returns how many of keys are present.
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// RPush appends values to the list and returns its new length.
	RPush(ctx context.Context, key string, values ...string) (int64, error)
	// RPop removes the last element; ErrNil if the list is empty.
	RPop(ctx context.Context, key string) (string, error)
	// BLPop waits up to timeout for the first element; ErrNil on timeout.
	BLPop(ctx context.Context, timeout time.Duration, key string) (string, error)
	LLen(ctx context.Context, key string) (int64, error)

	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	// HGet returns ErrNil if the field is absent.
	HGet(ctx context.Context, key, field string) (string, error)
	HExists(ctx context.Context, key, field string) (bool, error)
	// HScan reads the whole hash.
	HScan(ctx context.Context, key string) (map[string]string, error)

	// CompareAndDelete deletes key only if it still holds value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)

	Close() error
}

// Errors
var (
	ErrNil         = &StoreError{Message: "store: nil"}
	ErrLockTimeout = &StoreError{Message: "store: lock wait timed out"}
	ErrWrongType   = &StoreError{Message: "store: operation against a key holding the wrong kind of value"}
)

// StoreError represents a storage error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// QueueKey is the list of unissued roles of a room.
func QueueKey(roomID string) string { return fmt.Sprintf("sgs:rq:%s", roomID) }

// RolesKey is the user -> role hash of a room.
func RolesKey(roomID string) string { return fmt.Sprintf("sgs:ru:%s", roomID) }

// LockKey guards the completion check of a room.
func LockKey(roomID string) string { return fmt.Sprintf("sgs:lock:%s", roomID) }

// OwnerKey holds the advertise address of the process running the game.
func OwnerKey(roomID string) string { return fmt.Sprintf("sgs:owner:%s", roomID) }

// PickKey is the message queue of character picks.
func PickKey(roomID string) string { return fmt.Sprintf("sgs:pick:%s", roomID) }

// SeatsKey holds the JSON seat snapshot written by the owner.
func SeatsKey(roomID string) string { return fmt.Sprintf("sgs:seats:%s", roomID) }

// SizeKey holds the seat count a room was generated for.
func SizeKey(roomID string) string { return fmt.Sprintf("sgs:size:%s", roomID) }
