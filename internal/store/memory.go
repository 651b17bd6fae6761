package store

import (
	"context"
	"sync"
	"time"
)

type kind int

const (
	kindString kind = iota
	kindList
	kindHash
)

type entry struct {
	kind    kind
	str     string
	list    []string
	hash    map[string]string
	expires time.Time
}

// MemoryStore is an in-process Store for single-node runs and tests.
// Expired keys are dropped lazily when touched.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
	poll time.Duration
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*entry),
		now:  time.Now,
		poll: 10 * time.Millisecond,
	}
}

// lookup returns the live entry for key. Caller holds mu.
func (s *MemoryStore) lookup(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.data, key)
		return nil
	}
	return e
}

// typed returns the entry for key if it holds k, creating it when create is set.
func (s *MemoryStore) typed(key string, k kind, create bool) (*entry, error) {
	e := s.lookup(key)
	if e == nil {
		if !create {
			return nil, nil
		}
		e = &entry{kind: k}
		if k == kindHash {
			e.hash = make(map[string]string)
		}
		s.data[key] = e
		return e, nil
	}
	if e.kind != k {
		return nil, ErrWrongType
	}
	return e, nil
}

func (s *MemoryStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookup(key) != nil {
		return false, nil
	}
	s.data[key] = &entry{kind: kindString, str: value, expires: s.deadline(ttl)}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &entry{kind: kindString, str: value, expires: s.deadline(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindString, false)
	if err != nil {
		return "", err
	}
	if e == nil {
		return "", ErrNil
	}
	return e.str, nil
}

func (s *MemoryStore) Exists(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, key := range keys {
		if s.lookup(key) != nil {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return nil
	}
	if ttl <= 0 {
		delete(s.data, key)
		return nil
	}
	e.expires = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *MemoryStore) RPush(_ context.Context, key string, values ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindList, true)
	if err != nil {
		return 0, err
	}
	e.list = append(e.list, values...)
	return int64(len(e.list)), nil
}

func (s *MemoryStore) RPop(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindList, false)
	if err != nil {
		return "", err
	}
	if e == nil {
		return "", ErrNil
	}
	last := len(e.list) - 1
	val := e.list[last]
	e.list = e.list[:last]
	s.dropEmpty(key, e)
	return val, nil
}

func (s *MemoryStore) lpop(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindList, false)
	if err != nil {
		return "", err
	}
	if e == nil {
		return "", ErrNil
	}
	val := e.list[0]
	e.list = e.list[1:]
	s.dropEmpty(key, e)
	return val, nil
}

// BLPop polls the list until an element arrives. A zero timeout waits
// until ctx is done.
func (s *MemoryStore) BLPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		val, err := s.lpop(key)
		if err != ErrNil {
			return val, err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-expired:
			return "", ErrNil
		case <-ticker.C:
		}
	}
}

func (s *MemoryStore) LLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindList, false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.list)), nil
}

func (s *MemoryStore) HSetNX(_ context.Context, key, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindHash, true)
	if err != nil {
		return false, err
	}
	if _, ok := e.hash[field]; ok {
		return false, nil
	}
	e.hash[field] = value
	return true, nil
}

func (s *MemoryStore) HGet(_ context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindHash, false)
	if err != nil {
		return "", err
	}
	if e == nil {
		return "", ErrNil
	}
	val, ok := e.hash[field]
	if !ok {
		return "", ErrNil
	}
	return val, nil
}

func (s *MemoryStore) HExists(_ context.Context, key, field string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.typed(key, kindHash, false)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.hash[field]
	return ok, nil
}

func (s *MemoryStore) HScan(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)
	e, err := s.typed(key, kindHash, false)
	if err != nil || e == nil {
		return out, err
	}
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil || e.kind != kindString || e.str != value {
		return false, nil
	}
	delete(s.data, key)
	return true, nil
}

func (s *MemoryStore) Close() error { return nil }

// dropEmpty removes a list that has been drained, as Redis does.
func (s *MemoryStore) dropEmpty(key string, e *entry) {
	if len(e.list) == 0 {
		delete(s.data, key)
	}
}
