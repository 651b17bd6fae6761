package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/hero"
)

const (
	monarchOffer = 3
	offerSize    = 3
	lordExtra    = 2
)

// ActionPickHero is the prompt action answered by a character pick.
const ActionPickHero = "pick_hero"

var errStopCycle = errors.New("stop cycle")

// GameStartEvent offers each seat a slate of characters and waits for
// their picks. The lord sees a few monarchs plus the last two characters
// of the shared pool; every other position gets its own slice of three.
type GameStartEvent struct {
	ec          *EventCenter
	monarchPool []string
	heroPool    []string
	offers      map[string][]string
}

// NewGameStartEvent samples disjoint candidate pools for the room.
func NewGameStartEvent(ec *EventCenter) (*GameStartEvent, error) {
	pool := ec.deps.Heroes
	if pool == nil {
		return nil, fmt.Errorf("%w: no hero pool", hero.ErrPoolTooSmall)
	}
	monarchs := pool.Monarchs()
	monarchPool, err := hero.Sample(monarchs, min(monarchOffer, len(monarchs)))
	if err != nil {
		return nil, fmt.Errorf("sample monarchs: %w", err)
	}
	heroPool, err := hero.Sample(pool.All(), len(ec.cycle)*offerSize-1, monarchPool...)
	if err != nil {
		return nil, fmt.Errorf("sample heroes: %w", err)
	}
	return &GameStartEvent{
		ec:          ec,
		monarchPool: monarchPool,
		heroPool:    heroPool,
		offers:      make(map[string][]string, len(ec.cycle)),
	}, nil
}

// Offers returns the candidates shown to a user.
func (e *GameStartEvent) Offers(userID string) []string {
	return e.offers[userID]
}

func (e *GameStartEvent) Trigger(ctx context.Context) error {
	if err := e.ec.SettleCycle(ctx, e); err != nil {
		return err
	}
	if err := e.collect(ctx); err != nil {
		return err
	}
	for _, seat := range e.ec.cycle {
		if seat.HasHero() {
			continue
		}
		options := e.offers[seat.UserID]
		if len(options) == 0 {
			continue
		}
		if h, ok := e.ec.deps.Heroes.Lookup(options[0]); ok {
			seat.SetHero(h)
			e.ec.sendText(ctx, seat.UserID, fmt.Sprintf("Time is up, you play %s.", h.UniName()))
		}
	}
	e.ec.changed(ctx)
	return nil
}

func (e *GameStartEvent) Each(ctx context.Context, seat *UserRole, pos int) error {
	var options []string
	if pos == 1 {
		options = append(options, e.monarchPool...)
		options = append(options, e.heroPool[len(e.heroPool)-lordExtra:]...)
	} else {
		options = append(options, e.heroPool[(pos-2)*offerSize:(pos-1)*offerSize]...)
	}
	e.offers[seat.UserID] = options
	e.ec.sendCard(ctx, seat.UserID, Prompt{
		RoomID:   e.ec.roomID,
		Action:   ActionPickHero,
		Position: pos,
		Text:     fmt.Sprintf("You sit at position %d. Pick one of %d characters.", pos, len(options)),
		Options:  options,
	})
	return nil
}

// collect reads picks until every seat has chosen or the timeout passes.
func (e *GameStartEvent) collect(ctx context.Context) error {
	picks := e.ec.deps.Picks
	if picks == nil {
		return nil
	}
	deadline := time.Now().Add(e.ec.opts.PickTimeout)
	for assigned := 0; assigned < len(e.ec.cycle); {
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil
		}
		pick, err := picks.NextPick(ctx, wait)
		if errors.Is(err, ErrNoPick) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read pick: %w", err)
		}
		if e.assign(ctx, pick) {
			assigned++
		}
	}
	return nil
}

func (e *GameStartEvent) assign(ctx context.Context, pick Pick) bool {
	log := e.ec.log.With().Str("user", pick.UserID).Str("hero", pick.Hero).Logger()
	seat := e.ec.Seat(pick.UserID)
	if seat == nil {
		log.Warn().Msg("[event] pick from unseated user")
		return false
	}
	if seat.HasHero() {
		log.Debug().Msg("[event] duplicate pick ignored")
		return false
	}
	if !slices.Contains(e.offers[pick.UserID], pick.Hero) {
		log.Warn().Msg("[event] pick not offered")
		e.ec.sendText(ctx, pick.UserID, fmt.Sprintf("%s was not offered to you.", pick.Hero))
		return false
	}
	h, ok := e.ec.deps.Heroes.Lookup(pick.Hero)
	if !ok {
		log.Warn().Msg("[event] unknown hero picked")
		return false
	}
	seat.SetHero(h)
	e.ec.sendText(ctx, pick.UserID, fmt.Sprintf("You play %s.", h.UniName()))
	e.ec.changed(ctx)
	return true
}

// GameCycleEvent drives turns seat by seat until the win condition holds
// or the configured number of rounds has been played.
type GameCycleEvent struct {
	ec     *EventCenter
	rounds int
}

func NewGameCycleEvent(ec *EventCenter) *GameCycleEvent {
	return &GameCycleEvent{ec: ec}
}

// Rounds is the number of completed rotations.
func (e *GameCycleEvent) Rounds() int { return e.rounds }

func (e *GameCycleEvent) Trigger(ctx context.Context) error {
	for {
		if e.won() {
			return nil
		}
		if limit := e.ec.opts.MaxRounds; limit > 0 && e.rounds >= limit {
			return nil
		}
		err := e.ec.SettleCycle(ctx, e)
		if errors.Is(err, errStopCycle) {
			return nil
		}
		if err != nil {
			return err
		}
		e.rounds++
	}
}

func (e *GameCycleEvent) Each(ctx context.Context, seat *UserRole, pos int) error {
	if e.won() {
		return errStopCycle
	}
	if err := NewGameRoundEvent(e.ec, seat).Trigger(ctx); err != nil {
		return fmt.Errorf("turn of %s: %w", seat.UserID, err)
	}
	e.ec.curIdx++
	e.ec.changed(ctx)
	return nil
}

func (e *GameCycleEvent) won() bool {
	return e.ec.opts.WinCondition != nil && e.ec.opts.WinCondition(e.ec)
}

// GameRoundEvent is a single seat's turn. The actor draws; everyone else
// is told whose turn it is.
type GameRoundEvent struct {
	ec    *EventCenter
	actor *UserRole
}

func NewGameRoundEvent(ec *EventCenter, actor *UserRole) *GameRoundEvent {
	return &GameRoundEvent{ec: ec, actor: actor}
}

func (e *GameRoundEvent) Trigger(ctx context.Context) error {
	return e.ec.SettleCycle(ctx, e)
}

func (e *GameRoundEvent) Each(ctx context.Context, seat *UserRole, pos int) error {
	if seat != e.actor {
		e.ec.sendText(ctx, seat.UserID, fmt.Sprintf("It is %s's turn.", e.actor.UserID))
		return nil
	}
	cards, err := e.ec.deps.Heap.Draw(e.ec.opts.DrawPerTurn)
	if err != nil {
		return fmt.Errorf("draw phase: %w", err)
	}
	seat.OwnRegion = append(seat.OwnRegion, cards...)
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.String()
	}
	e.ec.sendText(ctx, seat.UserID, fmt.Sprintf("Your turn. You drew %s.", strings.Join(names, " ")))
	return nil
}
