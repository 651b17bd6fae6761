package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/models"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/room"
)

// ErrInvalidInput marks requests missing a required field.
var ErrInvalidInput = errors.New("invalid input")

// GameService handles the inbound room commands
type GameService struct {
	rooms    *room.Manager
	archive  archive.Repository
	minSeats int
	maxSeats int
}

// NewGameService creates a new game service. Rooms are limited to
// [minSeats, maxSeats] players.
func NewGameService(rooms *room.Manager, arch archive.Repository, minSeats, maxSeats int) *GameService {
	return &GameService{
		rooms:    rooms,
		archive:  arch,
		minSeats: minSeats,
		maxSeats: maxSeats,
	}
}

// MakeRoom creates a room for seats players and publishes its role queue
func (s *GameService) MakeRoom(ctx context.Context, seats, traitors int) (*models.MakeRoomResponse, error) {
	if seats < s.minSeats || seats > s.maxSeats {
		return nil, fmt.Errorf("%w: rooms take %d to %d players, got %d",
			engine.ErrInvalidSeatCount, s.minSeats, s.maxSeats, seats)
	}

	roomID := "room_" + uuid.New().String()
	r, err := s.rooms.CreateOrOpen(ctx, roomID, seats, traitors)
	if err != nil {
		return nil, err
	}
	published, err := r.Publish(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to publish room: %w", err)
	}
	if published != seats {
		return nil, fmt.Errorf("%w: room %s holds %d roles for %d seats",
			room.ErrPublishMismatch, roomID, published, seats)
	}

	return &models.MakeRoomResponse{RoomID: roomID, Seats: seats}, nil
}

// GetRole returns the caller's role, drawing it on first request
func (s *GameService) GetRole(ctx context.Context, roomID, userID string) (*models.GetRoleResponse, error) {
	if roomID == "" || userID == "" {
		return nil, fmt.Errorf("%w: room_id and user_id are required", ErrInvalidInput)
	}

	r, err := s.rooms.CreateOrOpen(ctx, roomID, 0, 0)
	if err != nil {
		return nil, err
	}
	role, err := r.PopRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.GetRoleResponse{RoomID: roomID, UserID: userID, Role: role.String()}, nil
}

// PickCharacter queues a character pick for the room's game
func (s *GameService) PickCharacter(ctx context.Context, roomID, userID, hero string) error {
	if roomID == "" || userID == "" || hero == "" {
		return fmt.Errorf("%w: room_id, user_id and hero are required", ErrInvalidInput)
	}
	return s.rooms.Pick(ctx, roomID, userID, hero)
}

// GetPositions lists the seats of a started game in turn order
func (s *GameService) GetPositions(ctx context.Context, roomID string) ([]engine.SeatSummary, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", ErrInvalidInput)
	}
	return s.rooms.Positions(ctx, roomID)
}

// UserGames lists the archived games of a user
func (s *GameService) UserGames(ctx context.Context, userID string) ([]*models.UserGame, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	games, err := s.archive.GamesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user games: %w", err)
	}
	return games, nil
}

// RecordWin records a win of userID with hero in gameMode. Each recorded
// win is worth one luck and one rep token.
func (s *GameService) RecordWin(ctx context.Context, userID, gameMode, hero string) (*models.WinRecord, error) {
	if userID == "" || gameMode == "" || hero == "" {
		return nil, fmt.Errorf("%w: user_id, game_mode and hero are required", ErrInvalidInput)
	}
	win := &models.WinRecord{
		UserID:     userID,
		GameMode:   gameMode,
		Hero:       hero,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.archive.RecordWin(ctx, win); err != nil {
		return nil, fmt.Errorf("failed to record win: %w", err)
	}
	return win, nil
}

// Tokens returns the unspent tokens of a user
func (s *GameService) Tokens(ctx context.Context, userID string) (*models.Tokens, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.archive.Tokens(ctx, userID)
}

// SpendToken consumes one luck or rep token
func (s *GameService) SpendToken(ctx context.Context, userID, kind string) (*models.Tokens, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	tokens, err := s.archive.Spend(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to spend %s: %w", kind, err)
	}
	return tokens, nil
}
