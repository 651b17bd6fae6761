package cassandra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/models"
)

// casAttempts bounds the read-then-LWT loops on user_tokens.
const casAttempts = 3

var errContended = errors.New("user_tokens row kept changing")

func usedColumn(kind string) (string, error) {
	switch kind {
	case models.TokenLuck:
		return "luck_used", nil
	case models.TokenRep:
		return "rep_used", nil
	default:
		return "", archive.ErrUnknownToken
	}
}

// lastWin reads the cooldown anchor of a user; found is false without a row.
func (r *Repository) lastWin(ctx context.Context, userID string) (last time.Time, found bool, err error) {
	query := fmt.Sprintf(`SELECT last_win FROM %s.user_tokens WHERE user_id = ?`, r.client.Keyspace())
	err = r.client.Session().Query(query, userID).WithContext(ctx).Scan(&last)
	if errors.Is(err, gocql.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

// claimWin moves last_win forward with a lightweight transaction, so two
// wins reported together cannot both pass the cooldown.
func (r *Repository) claimWin(ctx context.Context, userID string, at time.Time) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		last, found, err := r.lastWin(ctx, userID)
		if err != nil {
			return err
		}
		if archive.TooSoon(last, at) {
			return archive.ErrWinTooSoon
		}

		var query string
		var args []interface{}
		if !found {
			query = fmt.Sprintf(`
				INSERT INTO %s.user_tokens (user_id, last_win, luck_used, rep_used)
				VALUES (?, ?, 0, 0)
				IF NOT EXISTS`, r.client.Keyspace())
			args = []interface{}{userID, at}
		} else {
			query = fmt.Sprintf(`
				UPDATE %s.user_tokens SET last_win = ?
				WHERE user_id = ?
				IF last_win = ?`, r.client.Keyspace())
			args = []interface{}{at, userID, last}
		}
		applied, err := r.client.Session().Query(query, args...).
			WithContext(ctx).MapScanCAS(make(map[string]interface{}))
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		r.log.Debug().Str("user", userID).Int("attempt", attempt+1).Msg("Win cooldown contended, retrying")
	}
	return errContended
}

// RecordWin stores a win, replacing an earlier one for the same mode and hero
func (r *Repository) RecordWin(ctx context.Context, win *models.WinRecord) error {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := r.claimWin(queryCtx, win.UserID, win.RecordedAt); err != nil {
		if errors.Is(err, archive.ErrWinTooSoon) {
			return err
		}
		r.log.Error().Err(err).Str("user", win.UserID).Msg("Failed to claim win cooldown")
		return fmt.Errorf("failed to record win: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.user_wins (user_id, record_key, game_mode, hero, recorded_at)
		VALUES (?, ?, ?, ?, ?)`, r.client.Keyspace())
	err = r.client.Session().Query(query,
		win.UserID,
		archive.RecordKey(win.GameMode, win.Hero),
		win.GameMode,
		win.Hero,
		win.RecordedAt,
	).WithContext(queryCtx).Exec()
	if err != nil {
		r.log.Error().Err(err).Str("user", win.UserID).Msg("Failed to insert win record")
		return fmt.Errorf("failed to record win: %w", err)
	}

	r.log.Debug().Str("user", win.UserID).Str("mode", win.GameMode).Str("hero", win.Hero).Msg("Win recorded")
	return nil
}

// counters reads the win count and the spent tokens of a user
func (r *Repository) counters(ctx context.Context, userID string) (wins int64, luckUsed, repUsed int, err error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s.user_wins WHERE user_id = ?`, r.client.Keyspace())
	if err = r.client.Session().Query(countQuery, userID).WithContext(ctx).Scan(&wins); err != nil {
		return 0, 0, 0, err
	}

	usedQuery := fmt.Sprintf(`SELECT luck_used, rep_used FROM %s.user_tokens WHERE user_id = ?`, r.client.Keyspace())
	err = r.client.Session().Query(usedQuery, userID).WithContext(ctx).Scan(&luckUsed, &repUsed)
	if errors.Is(err, gocql.ErrNotFound) {
		return wins, 0, 0, nil
	}
	return wins, luckUsed, repUsed, err
}

func tokensOf(userID string, wins int64, luckUsed, repUsed int) *models.Tokens {
	n := int(wins)
	return &models.Tokens{UserID: userID, Wins: n, Luck: n - luckUsed, Rep: n - repUsed}
}

// Tokens counts the unspent tokens of a user
func (r *Repository) Tokens(ctx context.Context, userID string) (*models.Tokens, error) {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	wins, luckUsed, repUsed, err := r.counters(queryCtx, userID)
	if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("Failed to get tokens from Cassandra")
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	return tokensOf(userID, wins, luckUsed, repUsed), nil
}

// Spend consumes one token of kind with a compare-and-set on its counter
func (r *Repository) Spend(ctx context.Context, userID, kind string) (*models.Tokens, error) {
	column, err := usedColumn(kind)
	if err != nil {
		return nil, err
	}
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s.user_tokens SET %s = ?
		WHERE user_id = ?
		IF %s = ?`, r.client.Keyspace(), column, column)

	for attempt := 0; attempt < casAttempts; attempt++ {
		wins, luckUsed, repUsed, err := r.counters(queryCtx, userID)
		if err != nil {
			r.log.Error().Err(err).Str("user", userID).Msg("Failed to read tokens for spend")
			return nil, fmt.Errorf("failed to spend %s: %w", kind, err)
		}
		left := tokensOf(userID, wins, luckUsed, repUsed)
		used, have := luckUsed, left.Luck
		if kind == models.TokenRep {
			used, have = repUsed, left.Rep
		}
		if have <= 0 {
			return left, archive.ErrNoTokens
		}

		applied, err := r.client.Session().Query(query, used+1, userID, used).
			WithContext(queryCtx).MapScanCAS(make(map[string]interface{}))
		if err != nil {
			r.log.Error().Err(err).Str("user", userID).Msg("Failed to spend token in Cassandra")
			return nil, fmt.Errorf("failed to spend %s: %w", kind, err)
		}
		if applied {
			if kind == models.TokenRep {
				left.Rep--
			} else {
				left.Luck--
			}
			return left, nil
		}
	}
	return nil, fmt.Errorf("failed to spend %s: %w", kind, errContended)
}
