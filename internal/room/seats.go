package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/models"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/store"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/worker"
)

const finishTimeout = 5 * time.Second

// scheduleCheck runs CheckSeats on the check pool. The caller never waits
// for it; failures end up in the log. An overloaded pool drops the check,
// the next PopRole of the room schedules another one.
func (m *Manager) scheduleCheck(r *Room) {
	log := m.log.With().Str("room", r.id).Logger()
	onError := func(err error) {
		if errors.Is(err, worker.ErrPoolFull) {
			log.Warn().Err(err).Msg("[room] seat check dropped")
			return
		}
		log.Error().Err(err).Msg("[room] seat check failed")
	}
	_, err := m.checks.Submit("seat-check:"+r.id,
		func(ctx context.Context) error { return m.CheckSeats(ctx, r) },
		nil,
		onError,
	)
	if err != nil {
		onError(err)
	}
}

// CheckSeats starts the game of r if every role has been issued and no
// process has started it yet. Losing the race is not an error. When the
// lock cannot be taken the check is retried with linear backoff.
func (m *Manager) CheckSeats(ctx context.Context, r *Room) error {
	for attempt := 0; ; attempt++ {
		err := m.tryStart(ctx, r)
		if !errors.Is(err, store.ErrLockTimeout) {
			return err
		}
		if attempt >= m.opts.SeatCheckRetries {
			return fmt.Errorf("room %s: seat check gave up after %d attempts: %w", r.id, attempt+1, err)
		}
		m.log.Debug().Str("room", r.id).Int("attempt", attempt+1).Msg("[room] seat lock busy, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.opts.SeatCheckBackoff * time.Duration(attempt+1)):
		}
	}
}

func (m *Manager) tryStart(ctx context.Context, r *Room) error {
	left, err := r.Size(ctx)
	if err != nil || left != 0 {
		return err
	}
	ownerKey := store.OwnerKey(r.id)
	started, err := m.store.Exists(ctx, ownerKey)
	if err != nil || started > 0 {
		return err
	}

	ec, err := m.claimLocked(ctx, r)
	if err != nil || ec == nil {
		return err
	}
	return m.launch(ctx, ec)
}

func (m *Manager) claimLocked(ctx context.Context, r *Room) (*engine.EventCenter, error) {
	lock, err := m.locker.Acquire(ctx, store.LockKey(r.id), m.opts.LockWait)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
			m.log.Warn().Err(rerr).Str("room", r.id).Msg("[room] release seat lock")
		}
	}()
	return m.claim(ctx, r)
}

// claim runs under the seat lock. It builds the seats, takes the ownership
// lease and registers the EventCenter. A nil EventCenter means another
// process got there first.
func (m *Manager) claim(ctx context.Context, r *Room) (*engine.EventCenter, error) {
	ownerKey := store.OwnerKey(r.id)
	started, err := m.store.Exists(ctx, ownerKey)
	if err != nil || started > 0 {
		return nil, err
	}

	assigned, err := m.store.HScan(ctx, store.RolesKey(r.id))
	if err != nil {
		return nil, fmt.Errorf("read roles of %s: %w", r.id, err)
	}
	if len(assigned) == 0 {
		return nil, nil
	}
	seatCount, err := m.seatCount(ctx, r.id)
	if err != nil || seatCount == 0 {
		return nil, err
	}
	// the queue empties on RPop, the cache fills on HSetNX
	if len(assigned) < seatCount {
		m.log.Debug().Str("room", r.id).Int("assigned", len(assigned)).Int("seats", seatCount).
			Msg("[room] seats still filling")
		return nil, nil
	}
	if len(assigned) > seatCount {
		return nil, fmt.Errorf("room %s: %d roles cached for %d seats", r.id, len(assigned), seatCount)
	}

	heap := m.heaps.Get(r.id)
	seats := make([]*engine.UserRole, 0, len(assigned))
	for userID, value := range assigned {
		role, err := engine.ParseRole(value)
		if err != nil {
			m.heaps.Drop(r.id)
			return nil, fmt.Errorf("role of %s in %s: %w", userID, r.id, err)
		}
		seat, err := engine.NewUserRole(r.id, userID, role, heap, m.opts.HandSize)
		if err != nil {
			m.heaps.Drop(r.id)
			return nil, err
		}
		seats = append(seats, seat)
	}
	rand.Shuffle(len(seats), func(i, j int) { seats[i], seats[j] = seats[j], seats[i] })
	cycle, ok := engine.LordFirst(seats)
	if !ok {
		m.heaps.Drop(r.id)
		return nil, fmt.Errorf("room %s: no lord among %d seats", r.id, len(seats))
	}

	won, err := m.store.SetNX(ctx, ownerKey, m.opts.Owner, m.opts.TTL)
	if err != nil || !won {
		m.heaps.Drop(r.id)
		return nil, err
	}

	ec := engine.NewEventCenter(r.id, cycle, engine.Deps{
		Heroes:   m.heroes,
		Notifier: m.notifier,
		Picks:    &storePicks{store: m.store, key: store.PickKey(r.id), log: m.log},
		Heap:     heap,
		Log:      m.log,
	}, engine.Options{
		PickTimeout:  m.opts.PickTimeout,
		MaxRounds:    m.opts.MaxRounds,
		WinCondition: m.opts.WinCondition,
		OnChange:     m.changed,
	})
	m.register(ec)
	if err := m.store.Delete(ctx, store.PickKey(r.id)); err != nil {
		m.log.Warn().Err(err).Str("room", r.id).Msg("[room] clear stale picks")
	}
	m.changed(ctx, ec)

	m.log.Info().Str("room", r.id).Int("seats", len(cycle)).Str("lord", cycle[0].UserID).
		Msg("[room] all seats filled, game claimed")
	return ec, nil
}

// seatCount reads the seat count the room was generated for. Zero means
// the room has expired or was reset.
func (m *Manager) seatCount(ctx context.Context, roomID string) (int, error) {
	raw, err := m.store.Get(ctx, store.SizeKey(roomID))
	if errors.Is(err, store.ErrNil) {
		m.log.Warn().Str("room", roomID).Msg("[room] seat count missing")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read seat count of %s: %w", roomID, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("seat count of %s: %w", roomID, err)
	}
	return n, nil
}

// launch archives the game and submits its loop. It runs after the seat
// lock is released so other checks return quickly on the lease.
func (m *Manager) launch(ctx context.Context, ec *engine.EventCenter) error {
	roomID := ec.RoomID()
	game := &models.Game{
		RoomID:    roomID,
		Owner:     m.opts.Owner,
		StartedAt: time.Now().UTC(),
		Status:    models.GameActive,
	}
	for i, seat := range ec.Cycle() {
		game.Seats = append(game.Seats, models.SeatRecord{Position: i + 1, UserID: seat.UserID, Role: seat.Role.String()})
	}
	if err := m.archive.CreateGame(ctx, game); err != nil {
		if !errors.Is(err, archive.ErrGameExists) {
			m.log.Warn().Err(err).Str("room", roomID).Msg("[room] archive game")
		}
	}

	log := m.log.With().Str("room", roomID).Logger()
	_, err := m.pool.Submit("game:"+roomID,
		ec.Start,
		func() { m.finish(roomID, nil) },
		func(err error) {
			log.Error().Err(err).Msg("[room] game loop failed")
			m.finish(roomID, err)
		},
	)
	if err != nil {
		m.finish(roomID, err)
		return fmt.Errorf("submit game loop of %s: %w", roomID, err)
	}
	return nil
}

// finish tears down a hosted game. The lease becomes an end marker that
// keeps the room from being started again until it expires.
func (m *Manager) finish(roomID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()

	m.unregister(roomID)
	m.heaps.Drop(roomID)
	if err := m.store.Set(ctx, store.OwnerKey(roomID), endedMarker, m.opts.TTL); err != nil {
		m.log.Warn().Err(err).Str("room", roomID).Msg("[room] mark game ended")
	}
	if err := m.store.Delete(ctx, store.PickKey(roomID)); err != nil {
		m.log.Warn().Err(err).Str("room", roomID).Msg("[room] clear picks")
	}

	status, reason := models.GameFinished, ""
	if cause != nil {
		status, reason = models.GameFailed, cause.Error()
	}
	if err := m.archive.FinishGame(ctx, roomID, status, reason, time.Now().UTC()); err != nil {
		m.log.Warn().Err(err).Str("room", roomID).Msg("[room] archive game end")
	}
	m.log.Info().Str("room", roomID).Str("status", status).Msg("[room] game over")
}

// changed publishes the seat snapshot and keeps the room alive.
func (m *Manager) changed(ctx context.Context, ec *engine.EventCenter) {
	roomID := ec.RoomID()
	log := m.log.With().Str("room", roomID).Logger()

	data, err := json.Marshal(ec.Summaries())
	if err != nil {
		log.Error().Err(err).Msg("[room] encode seat snapshot")
		return
	}
	if err := m.store.Set(ctx, store.SeatsKey(roomID), string(data), m.opts.TTL); err != nil {
		log.Warn().Err(err).Msg("[room] write seat snapshot")
	}
	for _, key := range []string{store.OwnerKey(roomID), store.RolesKey(roomID), store.SizeKey(roomID)} {
		if err := m.store.Expire(ctx, key, m.opts.TTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("[room] refresh ttl failed")
		}
	}
}
