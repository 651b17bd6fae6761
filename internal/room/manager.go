package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/hero"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/store"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/worker"
)

var (
	ErrRolesExhausted  = errors.New("room has no unassigned roles left")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomNotActive   = errors.New("room has no active game")
	ErrPublishMismatch = errors.New("published role queue does not match seat count")
	ErrInvalidPick     = errors.New("invalid pick")
)

// endedMarker replaces the owner address once a game is over, so the room
// is never started twice while its role cache lives.
const endedMarker = "-"

// lockLease bounds how long a crashed check can hold the seat lock.
const lockLease = 30 * time.Second

// Options tune room lifetime and the games a Manager hosts.
type Options struct {
	// Owner is the advertise address written to the ownership lease.
	Owner            string
	TTL              time.Duration
	LockWait         time.Duration
	SeatCheckRetries int
	SeatCheckBackoff time.Duration
	PickTimeout      time.Duration
	HandSize         int
	MaxRounds        int
	Deck             func() []engine.Card
	WinCondition     func(ec *engine.EventCenter) bool
}

func (o *Options) withDefaults() {
	if o.Owner == "" {
		o.Owner = "local"
	}
	if o.TTL <= 0 {
		o.TTL = 900 * time.Second
	}
	if o.LockWait <= 0 {
		o.LockWait = 3 * time.Second
	}
	if o.SeatCheckBackoff <= 0 {
		o.SeatCheckBackoff = 500 * time.Millisecond
	}
	if o.PickTimeout <= 0 {
		o.PickTimeout = 120 * time.Second
	}
	if o.HandSize <= 0 {
		o.HandSize = 4
	}
	if o.Deck == nil {
		o.Deck = engine.StandardDeck
	}
}

// Deps are the collaborators of a Manager. Pool runs game loops; Checks
// runs seat checks, should be non-blocking, and defaults to Pool.
type Deps struct {
	Store    store.Store
	Pool     *worker.Pool
	Checks   *worker.Pool
	Heroes   *hero.Pool
	Notifier engine.Notifier
	Archive  archive.Repository
	Log      zerolog.Logger
}

// Manager creates and reopens rooms and hosts the games this process won.
// Everything shared between processes goes through the store; the games
// map only holds EventCenters running here.
type Manager struct {
	store    store.Store
	locker   *store.Locker
	pool     *worker.Pool
	checks   *worker.Pool
	heroes   *hero.Pool
	notifier engine.Notifier
	archive  archive.Repository
	heaps    *HeapRegistry
	opts     Options
	log      zerolog.Logger

	mu    sync.RWMutex
	games map[string]*engine.EventCenter
}

func NewManager(deps Deps, opts Options) *Manager {
	opts.withDefaults()
	if deps.Heroes == nil {
		deps.Heroes = hero.Default()
	}
	if deps.Archive == nil {
		deps.Archive = archive.NewMemoryRepository()
	}
	if deps.Checks == nil {
		deps.Checks = deps.Pool
	}
	return &Manager{
		store:    deps.Store,
		locker:   store.NewLocker(deps.Store, lockLease),
		pool:     deps.Pool,
		checks:   deps.Checks,
		heroes:   deps.Heroes,
		notifier: deps.Notifier,
		archive:  deps.Archive,
		heaps:    NewHeapRegistry(opts.Deck),
		opts:     opts,
		log:      deps.Log.With().Str("component", "room").Logger(),
		games:    make(map[string]*engine.EventCenter),
	}
}

// CreateOrOpen returns the room roomID.
//
// With seats == 0 the room must already exist. With seats > 0 an existing
// queue of the same length is reopened; otherwise any stale state is
// dropped and a fresh shuffled queue is generated, unpublished.
func (m *Manager) CreateOrOpen(ctx context.Context, roomID string, seats, traitors int) (*Room, error) {
	queueKey, rolesKey := store.QueueKey(roomID), store.RolesKey(roomID)

	queued, err := m.store.LLen(ctx, queueKey)
	if err != nil {
		return nil, fmt.Errorf("open room %s: %w", roomID, err)
	}
	switch {
	case queued > 0 && (seats == 0 || int(queued) == seats):
		return &Room{id: roomID, m: m}, nil
	case queued == 0 && seats == 0:
		n, err := m.store.Exists(ctx, rolesKey)
		if err != nil {
			return nil, fmt.Errorf("open room %s: %w", roomID, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
		}
		return &Room{id: roomID, m: m}, nil
	}

	if err := engine.ValidateComposition(seats, traitors); err != nil {
		return nil, err
	}
	if queued > 0 {
		m.log.Warn().Str("room", roomID).Int64("queued", queued).Int("seats", seats).
			Msg("[room] dropping stale role queue")
	}
	sizeKey := store.SizeKey(roomID)
	if err := m.store.Delete(ctx, queueKey, rolesKey, sizeKey); err != nil {
		return nil, fmt.Errorf("reset room %s: %w", roomID, err)
	}
	if err := m.store.Set(ctx, sizeKey, strconv.Itoa(seats), m.opts.TTL); err != nil {
		return nil, fmt.Errorf("reset room %s: %w", roomID, err)
	}

	roles := engine.GenerateRoles(seats, traitors)
	engine.ShuffleRoles(roles)
	return &Room{id: roomID, m: m, queue: roles, local: true}, nil
}

// Active reports whether a game for roomID is running on any process.
func (m *Manager) Active(ctx context.Context, roomID string) (bool, error) {
	owner, err := m.store.Get(ctx, store.OwnerKey(roomID))
	if errors.Is(err, store.ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read owner of %s: %w", roomID, err)
	}
	return owner != endedMarker, nil
}

// Owner returns the advertise address of the process hosting roomID.
func (m *Manager) Owner(ctx context.Context, roomID string) (string, error) {
	owner, err := m.store.Get(ctx, store.OwnerKey(roomID))
	if errors.Is(err, store.ErrNil) || owner == endedMarker {
		return "", fmt.Errorf("%w: %s", ErrRoomNotActive, roomID)
	}
	if err != nil {
		return "", fmt.Errorf("read owner of %s: %w", roomID, err)
	}
	return owner, nil
}

// Positions reads the seat snapshot of a started game from the store, so
// any process can answer it.
func (m *Manager) Positions(ctx context.Context, roomID string) ([]engine.SeatSummary, error) {
	raw, err := m.store.Get(ctx, store.SeatsKey(roomID))
	if errors.Is(err, store.ErrNil) {
		return nil, m.missing(ctx, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("read seats of %s: %w", roomID, err)
	}
	var seats []engine.SeatSummary
	if err := json.Unmarshal([]byte(raw), &seats); err != nil {
		return nil, fmt.Errorf("decode seats of %s: %w", roomID, err)
	}
	return seats, nil
}

// missing tells a room that never started apart from one that never existed.
func (m *Manager) missing(ctx context.Context, roomID string) error {
	n, err := m.store.Exists(ctx, store.QueueKey(roomID), store.RolesKey(roomID))
	if err != nil {
		return fmt.Errorf("look up room %s: %w", roomID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return fmt.Errorf("%w: %s", ErrRoomNotActive, roomID)
}

// Pick queues a character choice for the owner's GameStartEvent. Whether
// the character was actually offered to the user is decided there.
func (m *Manager) Pick(ctx context.Context, roomID, userID, uniName string) error {
	active, err := m.Active(ctx, roomID)
	if err != nil {
		return err
	}
	if !active {
		return m.missing(ctx, roomID)
	}
	seated, err := m.store.HExists(ctx, store.RolesKey(roomID), userID)
	if err != nil {
		return fmt.Errorf("look up seat of %s: %w", userID, err)
	}
	if !seated {
		return fmt.Errorf("%w: %s has no seat in %s", ErrInvalidPick, userID, roomID)
	}
	if _, ok := m.heroes.Lookup(uniName); !ok {
		return fmt.Errorf("%w: %w: %s", ErrInvalidPick, hero.ErrUnknownHero, uniName)
	}

	data, err := json.Marshal(engine.Pick{UserID: userID, Hero: uniName})
	if err != nil {
		return fmt.Errorf("encode pick: %w", err)
	}
	key := store.PickKey(roomID)
	if _, err := m.store.RPush(ctx, key, string(data)); err != nil {
		return fmt.Errorf("queue pick: %w", err)
	}
	if err := m.store.Expire(ctx, key, m.opts.TTL); err != nil {
		return fmt.Errorf("queue pick: %w", err)
	}
	return nil
}

// Game returns the EventCenter of roomID if this process hosts it.
func (m *Manager) Game(roomID string) *engine.EventCenter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.games[roomID]
}

// Games is the number of games hosted here.
func (m *Manager) Games() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

func (m *Manager) register(ec *engine.EventCenter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[ec.RoomID()] = ec
}

func (m *Manager) unregister(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, roomID)
}
