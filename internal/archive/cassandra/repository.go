package cassandra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/models"
)

// Repository implements archive.Repository using Cassandra
type Repository struct {
	client  *Client
	log     zerolog.Logger
	timeout time.Duration
}

var _ archive.Repository = (*Repository)(nil)

// NewRepository creates a new Cassandra-based game archive
func NewRepository(client *Client, log zerolog.Logger, timeout time.Duration) *Repository {
	return &Repository{
		client:  client,
		log:     log.With().Str("component", "archive").Logger(),
		timeout: timeout,
	}
}

// queryContext applies the configured timeout unless ctx already has a deadline.
func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}
	if err := ctx.Err(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("context cancelled: %w", err)
	}
	return ctx, cancel, nil
}

// CreateGame inserts the game row once and indexes it under every seat's user
func (r *Repository) CreateGame(ctx context.Context, game *models.Game) error {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	users := make([]string, len(game.Seats))
	roles := make([]string, len(game.Seats))
	for i, seat := range game.Seats {
		users[i] = seat.UserID
		roles[i] = seat.Role
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.games (room_id, owner, seat_users, seat_roles, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
		IF NOT EXISTS`, r.client.Keyspace())

	applied, err := r.client.Session().Query(query,
		game.RoomID,
		game.Owner,
		users,
		roles,
		game.StartedAt,
		game.Status,
	).WithContext(queryCtx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		r.log.Error().Err(err).Str("room", game.RoomID).Msg("Failed to create game in Cassandra")
		return fmt.Errorf("failed to create game: %w", err)
	}
	if !applied {
		return archive.ErrGameExists
	}

	batch := r.client.Session().NewBatch(gocql.LoggedBatch).WithContext(queryCtx)
	insert := fmt.Sprintf(`
		INSERT INTO %s.user_games (user_id, started_at, room_id, position)
		VALUES (?, ?, ?, ?)`, r.client.Keyspace())
	for _, seat := range game.Seats {
		batch.Query(insert, seat.UserID, game.StartedAt, game.RoomID, seat.Position)
	}
	if err := r.client.Session().ExecuteBatch(batch); err != nil {
		r.log.Error().Err(err).Str("room", game.RoomID).Msg("Failed to index game by user")
		return fmt.Errorf("failed to index game: %w", err)
	}

	r.log.Debug().Str("room", game.RoomID).Int("seats", len(game.Seats)).Msg("Game archived")
	return nil
}

// FinishGame sets the final status of a game
func (r *Repository) FinishGame(ctx context.Context, roomID, status, reason string, endedAt time.Time) error {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s.games
		SET status = ?, reason = ?, ended_at = ?
		WHERE room_id = ?
		IF EXISTS`, r.client.Keyspace())

	applied, err := r.client.Session().Query(query, status, reason, endedAt, roomID).
		WithContext(queryCtx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		r.log.Error().Err(err).Str("room", roomID).Msg("Failed to finish game in Cassandra")
		return fmt.Errorf("failed to finish game: %w", err)
	}
	if !applied {
		return archive.ErrGameNotFound
	}

	r.log.Debug().Str("room", roomID).Str("status", status).Msg("Game finished")
	return nil
}

// GetGame retrieves a game by room ID
func (r *Repository) GetGame(ctx context.Context, roomID string) (*models.Game, error) {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := fmt.Sprintf(`
		SELECT room_id, owner, seat_users, seat_roles, started_at, ended_at, status, reason
		FROM %s.games
		WHERE room_id = ?`, r.client.Keyspace())

	var (
		game         models.Game
		users, roles []string
	)
	err = r.client.Session().Query(query, roomID).WithContext(queryCtx).Scan(
		&game.RoomID,
		&game.Owner,
		&users,
		&roles,
		&game.StartedAt,
		&game.EndedAt,
		&game.Status,
		&game.Reason,
	)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, archive.ErrGameNotFound
		}
		r.log.Error().Err(err).Str("room", roomID).Msg("Failed to get game from Cassandra")
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	game.Seats = make([]models.SeatRecord, len(users))
	for i, u := range users {
		game.Seats[i] = models.SeatRecord{Position: i + 1, UserID: u}
		if i < len(roles) {
			game.Seats[i].Role = roles[i]
		}
	}
	return &game, nil
}

// GamesByUser lists a user's games newest first from their partition
func (r *Repository) GamesByUser(ctx context.Context, userID string) ([]*models.UserGame, error) {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := fmt.Sprintf(`
		SELECT user_id, room_id, position, started_at
		FROM %s.user_games
		WHERE user_id = ?`, r.client.Keyspace())

	iter := r.client.Session().Query(query, userID).WithContext(queryCtx).Iter()

	var (
		games []*models.UserGame
		game  models.UserGame
	)
	for iter.Scan(&game.UserID, &game.RoomID, &game.Position, &game.StartedAt) {
		g := game
		games = append(games, &g)
	}
	if err := iter.Close(); err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("Failed to get games by user from Cassandra")
		return nil, fmt.Errorf("failed to get games: %w", err)
	}
	return games, nil
}
