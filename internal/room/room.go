package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/store"
)

const (
	cacheSettle = 250 * time.Millisecond
	cachePoll   = 10 * time.Millisecond
)

// Room issues the roles of one game. A freshly created room holds its
// queue locally until Publish; afterwards, and for every reopened room,
// the store list is the only source of unissued roles.
type Room struct {
	id string
	m  *Manager

	mu    sync.Mutex
	queue []engine.Role
	local bool
}

func (r *Room) ID() string { return r.id }

// Publish pushes the local queue to the store in generation order and
// returns the resulting list length. The caller compares it with the seat
// count; publishing the same id twice concurrently is not atomic.
func (r *Room) Publish(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.local {
		return r.storedSize(ctx)
	}
	if len(r.queue) == 0 {
		r.local = false
		return r.storedSize(ctx)
	}
	values := make([]string, len(r.queue))
	for i, role := range r.queue {
		values[i] = role.String()
	}

	// the local queue stays authoritative until the push lands
	key := store.QueueKey(r.id)
	n, err := r.m.store.RPush(ctx, key, values...)
	if err != nil {
		return 0, fmt.Errorf("publish room %s: %w", r.id, err)
	}
	r.queue, r.local = nil, false
	if err := r.m.store.Expire(ctx, key, r.m.opts.TTL); err != nil {
		return 0, fmt.Errorf("publish room %s: %w", r.id, err)
	}
	return int(n), nil
}

// Size is the number of roles not yet issued.
func (r *Room) Size(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.local {
		return len(r.queue), nil
	}
	return r.storedSize(ctx)
}

func (r *Room) storedSize(ctx context.Context) (int, error) {
	n, err := r.m.store.LLen(ctx, store.QueueKey(r.id))
	if err != nil {
		return 0, fmt.Errorf("size of room %s: %w", r.id, err)
	}
	return int(n), nil
}

// PopRole returns the role of userID, drawing one on the first call only.
// Every call schedules a seat-completion check in the background, so a
// replay recovers a room whose earlier check was lost.
func (r *Room) PopRole(ctx context.Context, userID string) (engine.Role, error) {
	rolesKey := store.RolesKey(r.id)

	role, err := r.cached(ctx, userID)
	if err == nil {
		r.m.scheduleCheck(r)
		return role, nil
	}
	if !errors.Is(err, store.ErrNil) {
		return "", err
	}

	role, err = r.take(ctx)
	if errors.Is(err, ErrRolesExhausted) {
		// a concurrent pop for the same user may hold the last role
		// between RPop and HSetNX
		if role, cerr := r.awaitCached(ctx, userID); cerr == nil {
			r.m.scheduleCheck(r)
			return role, nil
		}
	}
	if err != nil {
		return "", err
	}
	ok, err := r.m.store.HSetNX(ctx, rolesKey, userID, role.String())
	if err != nil {
		r.giveBack(ctx, role)
		return "", fmt.Errorf("cache role of %s: %w", userID, err)
	}
	if !ok {
		// A concurrent pop for the same user cached first.
		r.giveBack(ctx, role)
		if role, err = r.cached(ctx, userID); err != nil {
			return "", err
		}
	}

	for _, key := range []string{rolesKey, store.QueueKey(r.id), store.SizeKey(r.id)} {
		if err := r.m.store.Expire(ctx, key, r.m.opts.TTL); err != nil {
			r.m.log.Warn().Err(err).Str("room", r.id).Str("key", key).Msg("[room] refresh ttl failed")
		}
	}
	r.m.scheduleCheck(r)
	return role, nil
}

func (r *Room) cached(ctx context.Context, userID string) (engine.Role, error) {
	val, err := r.m.store.HGet(ctx, store.RolesKey(r.id), userID)
	if err != nil {
		if errors.Is(err, store.ErrNil) {
			return "", err
		}
		return "", fmt.Errorf("read role of %s: %w", userID, err)
	}
	return engine.ParseRole(val)
}

// awaitCached polls the role cache of userID for up to cacheSettle.
func (r *Room) awaitCached(ctx context.Context, userID string) (engine.Role, error) {
	deadline := time.NewTimer(cacheSettle)
	defer deadline.Stop()
	tick := time.NewTicker(cachePoll)
	defer tick.Stop()

	for {
		role, err := r.cached(ctx, userID)
		if !errors.Is(err, store.ErrNil) {
			return role, err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", err
		case <-tick.C:
		}
	}
}

// take pops one role from whichever queue is authoritative.
func (r *Room) take(ctx context.Context) (engine.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local {
		if len(r.queue) == 0 {
			return "", fmt.Errorf("%w: %s", ErrRolesExhausted, r.id)
		}
		last := len(r.queue) - 1
		role := r.queue[last]
		r.queue = r.queue[:last]
		return role, nil
	}

	val, err := r.m.store.RPop(ctx, store.QueueKey(r.id))
	if errors.Is(err, store.ErrNil) {
		return "", fmt.Errorf("%w: %s", ErrRolesExhausted, r.id)
	}
	if err != nil {
		return "", fmt.Errorf("draw role in %s: %w", r.id, err)
	}
	return engine.ParseRole(val)
}

// giveBack returns an uncached role to the queue it came from.
func (r *Room) giveBack(ctx context.Context, role engine.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local {
		r.queue = append(r.queue, role)
		return
	}
	key := store.QueueKey(r.id)
	if _, err := r.m.store.RPush(ctx, key, role.String()); err != nil {
		r.m.log.Error().Err(err).Str("room", r.id).Str("role", role.String()).Msg("[room] role lost while returning it")
		return
	}
	if err := r.m.store.Expire(ctx, key, r.m.opts.TTL); err != nil {
		r.m.log.Warn().Err(err).Str("room", r.id).Msg("[room] refresh ttl failed")
	}
}
