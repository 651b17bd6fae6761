package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/store"
)

// storePicks reads picks from the room's pick list, which any process
// may push to.
type storePicks struct {
	store store.Store
	key   string
	log   zerolog.Logger
}

func (p *storePicks) NextPick(ctx context.Context, wait time.Duration) (engine.Pick, error) {
	deadline := time.Now().Add(wait)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return engine.Pick{}, engine.ErrNoPick
		}
		raw, err := p.store.BLPop(ctx, left, p.key)
		if errors.Is(err, store.ErrNil) {
			return engine.Pick{}, engine.ErrNoPick
		}
		if err != nil {
			return engine.Pick{}, fmt.Errorf("wait for pick: %w", err)
		}

		var pick engine.Pick
		if err := json.Unmarshal([]byte(raw), &pick); err != nil || pick.UserID == "" {
			p.log.Warn().Str("key", p.key).Str("raw", raw).Msg("[room] malformed pick dropped")
			continue
		}
		return pick, nil
	}
}
