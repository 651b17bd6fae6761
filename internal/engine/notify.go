package engine

import (
	"context"
	"errors"
	"time"
)

// ErrNoPick is returned by a PickSource that timed out.
var ErrNoPick = errors.New("no pick received")

// Prompt is a selection card pushed to a player. Rendering belongs to the
// messaging side; Options carry the values a player can answer with.
type Prompt struct {
	RoomID   string   `json:"room_id"`
	Action   string   `json:"action"`
	Position int      `json:"position"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
}

// Notifier delivers prompts and status text to players.
type Notifier interface {
	SendCard(ctx context.Context, userID string, p Prompt) error
	SendText(ctx context.Context, userID, text string) error
}

// Pick is a player's answer to a character prompt.
type Pick struct {
	UserID string `json:"user_id"`
	Hero   string `json:"hero"`
}

// PickSource yields picks sent by players, possibly from other processes.
// NextPick returns ErrNoPick when nothing arrives within wait.
type PickSource interface {
	NextPick(ctx context.Context, wait time.Duration) (Pick, error)
}
