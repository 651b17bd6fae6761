package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T, size int) *Pool {
	t.Helper()
	p, err := NewPool(size, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(time.Second) })
	return p
}

func waitHandle(t *testing.T, h *Handle) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-h.Done():
		return h.Err()
	case <-ctx.Done():
		t.Fatalf("task %s did not finish", h.Name())
		return nil
	}
}

func TestSubmit_RequiresErrorHandler(t *testing.T) {
	p := newPool(t, 1)
	_, err := p.Submit("noop", func(context.Context) error { return nil }, nil, nil)
	assert.ErrorIs(t, err, ErrNoErrorHandler)
}

func TestSubmit_Continuations(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		task        Task
		wantSuccess bool
		wantErr     bool
		errContains string
	}{
		{
			name:        "success",
			task:        func(context.Context) error { return nil },
			wantSuccess: true,
		},
		{
			name:        "error",
			task:        func(context.Context) error { return boom },
			wantErr:     true,
			errContains: "boom",
		},
		{
			name:        "panic",
			task:        func(context.Context) error { panic("kaboom") },
			wantErr:     true,
			errContains: "panic: kaboom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPool(t, 2)
			var succeeded atomic.Bool
			var got error
			var mu sync.Mutex

			h, err := p.Submit(tt.name, tt.task, func() { succeeded.Store(true) }, func(err error) {
				mu.Lock()
				got = err
				mu.Unlock()
			})
			require.NoError(t, err)

			res := waitHandle(t, h)
			assert.Equal(t, tt.wantSuccess, succeeded.Load())

			mu.Lock()
			defer mu.Unlock()
			if tt.wantErr {
				require.Error(t, got)
				assert.Contains(t, got.Error(), tt.errContains)
				assert.Equal(t, got, res)
			} else {
				assert.NoError(t, got)
				assert.NoError(t, res)
			}
		})
	}
}

func TestSubmit_Bounded(t *testing.T) {
	p := newPool(t, 2)
	release := make(chan struct{})
	var peak, running int32

	handles := make([]*Handle, 0, 6)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 6; i++ {
			h, err := p.Submit("busy", func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					cur := atomic.LoadInt32(&peak)
					if n <= cur || atomic.CompareAndSwapInt32(&peak, cur, n) {
						break
					}
				}
				<-release
				atomic.AddInt32(&running, -1)
				return nil
			}, nil, func(error) {})
			if assert.NoError(t, err) {
				handles = append(handles, h)
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	for _, h := range handles {
		assert.NoError(t, waitHandle(t, h))
	}
	assert.LessOrEqual(t, peak, int32(2))
}

func TestClose_CancelsTasks(t *testing.T) {
	p, err := NewPool(1, zerolog.Nop())
	require.NoError(t, err)

	started := make(chan struct{})
	h, err := p.Submit("blocking", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, nil, func(error) {})
	require.NoError(t, err)

	<-started
	require.NoError(t, p.Close(time.Second))
	assert.ErrorIs(t, waitHandle(t, h), context.Canceled)
}

func TestHandle_Wait(t *testing.T) {
	p := newPool(t, 1)
	block := make(chan struct{})
	h, err := p.Submit("slow", func(context.Context) error {
		<-block
		return nil
	}, nil, func(error) {})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Wait(ctx), context.DeadlineExceeded)
	assert.NoError(t, h.Err())

	close(block)
	assert.NoError(t, h.Wait(context.Background()))
}

func TestSubmit_NonblockingOverload(t *testing.T) {
	p, err := NewPool(1, zerolog.Nop(), WithNonblocking())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(time.Second) })

	release := make(chan struct{})
	busy, err := p.Submit("busy", func(context.Context) error {
		<-release
		return nil
	}, nil, func(error) {})
	require.NoError(t, err)

	start := time.Now()
	h, err := p.Submit("extra", func(context.Context) error { return nil }, nil, func(error) {})
	assert.ErrorIs(t, err, ErrPoolFull)
	assert.Nil(t, h)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(release)
	assert.NoError(t, waitHandle(t, busy))
}
