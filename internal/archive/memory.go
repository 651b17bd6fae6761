package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/models"
)

// Repository records started games and who played them. It is
// implemented by both in-memory and Cassandra storage.
type Repository interface {
	CreateGame(ctx context.Context, game *models.Game) error
	FinishGame(ctx context.Context, roomID, status, reason string, endedAt time.Time) error
	GetGame(ctx context.Context, roomID string) (*models.Game, error)
	GamesByUser(ctx context.Context, userID string) ([]*models.UserGame, error)

	// RecordWin stores win unless the user's previous win is within
	// WinCooldown, in which case it returns ErrWinTooSoon.
	RecordWin(ctx context.Context, win *models.WinRecord) error
	Tokens(ctx context.Context, userID string) (*models.Tokens, error)
	// Spend consumes one token of kind and returns what is left.
	Spend(ctx context.Context, userID, kind string) (*models.Tokens, error)
}

// MemoryRepository provides in-memory game archiving
type MemoryRepository struct {
	mu     sync.RWMutex
	games  map[string]*models.Game
	byUser map[string][]*models.UserGame
	wins   map[string]*userWins
}

// NewMemoryRepository creates a new in-memory archive
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		games:  make(map[string]*models.Game),
		byUser: make(map[string][]*models.UserGame),
		wins:   make(map[string]*userWins),
	}
}

// CreateGame records a started game
func (r *MemoryRepository) CreateGame(ctx context.Context, game *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[game.RoomID]; exists {
		return ErrGameExists
	}

	stored := *game
	stored.Seats = append([]models.SeatRecord(nil), game.Seats...)
	r.games[game.RoomID] = &stored
	for _, seat := range game.Seats {
		r.byUser[seat.UserID] = append(r.byUser[seat.UserID], &models.UserGame{
			UserID:    seat.UserID,
			RoomID:    game.RoomID,
			Position:  seat.Position,
			StartedAt: game.StartedAt,
		})
	}
	return nil
}

// FinishGame marks a game as ended
func (r *MemoryRepository) FinishGame(ctx context.Context, roomID, status, reason string, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	game, exists := r.games[roomID]
	if !exists {
		return ErrGameNotFound
	}
	game.Status = status
	game.Reason = reason
	game.EndedAt = endedAt
	return nil
}

// GetGame retrieves a game by room ID
func (r *MemoryRepository) GetGame(ctx context.Context, roomID string) (*models.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	game, exists := r.games[roomID]
	if !exists {
		return nil, ErrGameNotFound
	}
	out := *game
	out.Seats = append([]models.SeatRecord(nil), game.Seats...)
	return &out, nil
}

// GamesByUser lists a user's games, newest first
func (r *MemoryRepository) GamesByUser(ctx context.Context, userID string) ([]*models.UserGame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]*models.UserGame, 0, len(r.byUser[userID]))
	for _, g := range r.byUser[userID] {
		c := *g
		games = append(games, &c)
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].StartedAt.After(games[j].StartedAt)
	})
	return games, nil
}

// Errors
var (
	ErrGameNotFound = &ArchiveError{Message: "game not found"}
	ErrGameExists   = &ArchiveError{Message: "game already archived"}
	ErrWinTooSoon   = &ArchiveError{Message: "previous win recorded less than 5 minutes ago"}
	ErrNoTokens     = &ArchiveError{Message: "no tokens left"}
	ErrUnknownToken = &ArchiveError{Message: "unknown token kind"}
)

// ArchiveError represents an archive error
type ArchiveError struct {
	Message string
}

func (e *ArchiveError) Error() string {
	return e.Message
}
