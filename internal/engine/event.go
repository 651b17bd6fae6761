package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/hero"
)

// Event is one step of the game. Trigger decides how seats are visited;
// Each is the per-seat action, called with the seat's 1-indexed position
// counted from the current actor.
type Event interface {
	Trigger(ctx context.Context) error
	Each(ctx context.Context, seat *UserRole, pos int) error
}

// Deps are the collaborators an EventCenter drives.
type Deps struct {
	Heroes   *hero.Pool
	Notifier Notifier
	Picks    PickSource
	Heap     *CardHeap
	Log      zerolog.Logger
}

// Options tune the game loop.
type Options struct {
	// PickTimeout bounds how long GameStartEvent waits for character picks.
	PickTimeout time.Duration
	// MaxRounds stops the cycle after this many full rotations.
	MaxRounds int
	// DrawPerTurn is the number of cards drawn in each draw phase.
	DrawPerTurn int
	// WinCondition ends the cycle when it returns true.
	WinCondition func(ec *EventCenter) bool
	// OnChange is called after seats or the turn cursor change.
	OnChange func(ctx context.Context, ec *EventCenter)
}

// EventCenter is the turn engine of one active game. The seat order is
// fixed at construction; only the turn cursor moves, and only from the
// task that runs Start.
type EventCenter struct {
	roomID string
	cycle  []*UserRole
	curIdx int

	deps Deps
	opts Options
	log  zerolog.Logger
}

// NewEventCenter creates the engine for a room. cycle must already start
// with the lord.
func NewEventCenter(roomID string, cycle []*UserRole, deps Deps, opts Options) *EventCenter {
	if opts.MaxRounds <= 0 && opts.WinCondition == nil {
		opts.MaxRounds = 1
	}
	if opts.DrawPerTurn <= 0 {
		opts.DrawPerTurn = 2
	}
	return &EventCenter{
		roomID: roomID,
		cycle:  cycle,
		deps:   deps,
		opts:   opts,
		log:    deps.Log.With().Str("room", roomID).Logger(),
	}
}

func (ec *EventCenter) RoomID() string { return ec.roomID }

// CurIdx is the number of turns taken so far; the actor is CurIdx mod seats.
func (ec *EventCenter) CurIdx() int { return ec.curIdx }

// Cycle returns the seats in turn order, lord first.
func (ec *EventCenter) Cycle() []*UserRole {
	return append([]*UserRole(nil), ec.cycle...)
}

// Seat finds a seat by user id.
func (ec *EventCenter) Seat(userID string) *UserRole {
	for _, s := range ec.cycle {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// Summaries renders every seat in turn order.
func (ec *EventCenter) Summaries() []SeatSummary {
	out := make([]SeatSummary, len(ec.cycle))
	for i, s := range ec.cycle {
		out[i] = s.Summary(i + 1)
	}
	return out
}

// Start runs the whole game: character selection, then the turn cycle.
func (ec *EventCenter) Start(ctx context.Context) error {
	start, err := NewGameStartEvent(ec)
	if err != nil {
		return fmt.Errorf("room %s: %w", ec.roomID, err)
	}
	if err := start.Trigger(ctx); err != nil {
		return fmt.Errorf("room %s game start: %w", ec.roomID, err)
	}
	if err := NewGameCycleEvent(ec).Trigger(ctx); err != nil {
		return fmt.Errorf("room %s game cycle: %w", ec.roomID, err)
	}
	return nil
}

// SettleCycle visits every seat once, starting at the current actor.
func (ec *EventCenter) SettleCycle(ctx context.Context, ev Event) error {
	n := len(ec.cycle)
	if n == 0 {
		return nil
	}
	start := ec.curIdx % n
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ev.Each(ctx, ec.cycle[(start+i)%n], i+1); err != nil {
			return err
		}
	}
	return nil
}

func (ec *EventCenter) changed(ctx context.Context) {
	if ec.opts.OnChange != nil {
		ec.opts.OnChange(ctx, ec)
	}
}

func (ec *EventCenter) sendText(ctx context.Context, userID, text string) {
	if ec.deps.Notifier == nil {
		return
	}
	if err := ec.deps.Notifier.SendText(ctx, userID, text); err != nil {
		ec.log.Warn().Err(err).Str("user", userID).Msg("[event] send text failed")
	}
}

func (ec *EventCenter) sendCard(ctx context.Context, userID string, p Prompt) {
	if ec.deps.Notifier == nil {
		return
	}
	if err := ec.deps.Notifier.SendCard(ctx, userID, p); err != nil {
		ec.log.Warn().Err(err).Str("user", userID).Msg("[event] send card failed")
	}
}
