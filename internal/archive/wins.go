package archive

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/models"
)

// WinCooldown is the minimum gap between two recorded wins of a user.
const WinCooldown = 5 * time.Minute

// RecordKey identifies a win record within a user: one per mode and hero.
func RecordKey(gameMode, hero string) string {
	sum := md5.Sum([]byte(gameMode + "\t" + hero))
	return hex.EncodeToString(sum[:])
}

// TooSoon reports whether a win at at falls inside the cooldown of last.
func TooSoon(last, at time.Time) bool {
	return !last.IsZero() && at.Sub(last) <= WinCooldown
}

// ValidToken reports whether kind names a token.
func ValidToken(kind string) bool {
	return kind == models.TokenLuck || kind == models.TokenRep
}

type userWins struct {
	records  map[string]*models.WinRecord
	lastWin  time.Time
	luckUsed int
	repUsed  int
}

func (u *userWins) tokens(userID string) *models.Tokens {
	t := &models.Tokens{UserID: userID}
	if u == nil {
		return t
	}
	t.Wins = len(u.records)
	t.Luck = t.Wins - u.luckUsed
	t.Rep = t.Wins - u.repUsed
	return t
}

// RecordWin stores a win, replacing an earlier one for the same mode and hero
func (r *MemoryRepository) RecordWin(ctx context.Context, win *models.WinRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.wins[win.UserID]
	if u == nil {
		u = &userWins{records: make(map[string]*models.WinRecord)}
		r.wins[win.UserID] = u
	}
	if TooSoon(u.lastWin, win.RecordedAt) {
		return ErrWinTooSoon
	}
	stored := *win
	u.records[RecordKey(win.GameMode, win.Hero)] = &stored
	u.lastWin = win.RecordedAt
	return nil
}

// Tokens counts the unspent tokens of a user
func (r *MemoryRepository) Tokens(ctx context.Context, userID string) (*models.Tokens, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wins[userID].tokens(userID), nil
}

// Spend consumes one token of kind
func (r *MemoryRepository) Spend(ctx context.Context, userID, kind string) (*models.Tokens, error) {
	if !ValidToken(kind) {
		return nil, ErrUnknownToken
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.wins[userID]
	left := u.tokens(userID)
	switch {
	case kind == models.TokenLuck && left.Luck > 0:
		u.luckUsed++
	case kind == models.TokenRep && left.Rep > 0:
		u.repUsed++
	default:
		return left, ErrNoTokens
	}
	return u.tokens(userID), nil
}
