package models

import (
	"time"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
)

// Game statuses recorded in the archive.
const (
	GameActive   = "active"
	GameFinished = "finished"
	GameFailed   = "failed"
)

// SeatRecord is one seat of an archived game, in turn order.
type SeatRecord struct {
	Position int    `json:"position"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
}

// Game is the archive record of a started game
type Game struct {
	RoomID    string       `json:"room_id"`
	Owner     string       `json:"owner"`
	Seats     []SeatRecord `json:"seats"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at,omitempty"`
	Status    string       `json:"status"`
	Reason    string       `json:"reason,omitempty"`
}

// UserGame is a game as seen from one participant
type UserGame struct {
	UserID    string    `json:"user_id"`
	RoomID    string    `json:"room_id"`
	Position  int       `json:"position"`
	StartedAt time.Time `json:"started_at"`
}

// Token kinds a user earns one of per recorded win.
const (
	TokenLuck = "luck"
	TokenRep  = "rep"
)

// WinRecord is a win a user reported. A user keeps one record per game
// mode and hero; reporting the same pair again replaces it.
type WinRecord struct {
	UserID     string    `json:"user_id"`
	GameMode   string    `json:"game_mode"`
	Hero       string    `json:"hero"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Tokens are the unspent luck and rep tokens of a user
type Tokens struct {
	UserID string `json:"user_id"`
	Wins   int    `json:"wins"`
	Luck   int    `json:"luck"`
	Rep    int    `json:"rep"`
}

// RecordWinRequest reports a win
type RecordWinRequest struct {
	GameMode string `json:"game_mode"`
	Hero     string `json:"hero"`
}

// MakeRoomRequest represents the request to create a room
type MakeRoomRequest struct {
	Seats    int `json:"seats"`
	Traitors int `json:"traitors"`
}

// MakeRoomResponse represents the response when a room is created
type MakeRoomResponse struct {
	RoomID string `json:"room_id"`
	Seats  int    `json:"seats"`
}

// GetRoleRequest represents a player asking for their seat
type GetRoleRequest struct {
	UserID string `json:"user_id"`
}

// GetRoleResponse carries the role dealt to a player
type GetRoleResponse struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// PickRequest represents a character pick
type PickRequest struct {
	UserID string `json:"user_id"`
	Hero   string `json:"hero"`
}

// PickResponse acknowledges a queued pick
type PickResponse struct {
	Status string `json:"status"`
}

// PositionsResponse lists the seats of a running game in turn order
type PositionsResponse struct {
	RoomID string               `json:"room_id"`
	Seats  []engine.SeatSummary `json:"seats"`
}

// UserGamesResponse lists a user's archived games, newest first
type UserGamesResponse struct {
	UserID string      `json:"user_id"`
	Games  []*UserGame `json:"games"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
