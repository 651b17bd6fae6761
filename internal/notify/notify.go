package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
)

// Log writes every prompt and message to the log. It never fails.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "notify").Logger()}
}

func (l *Log) SendCard(_ context.Context, userID string, p engine.Prompt) error {
	l.log.Info().
		Str("user", userID).
		Str("room", p.RoomID).
		Str("action", p.Action).
		Int("position", p.Position).
		Strs("options", p.Options).
		Msg(p.Text)
	return nil
}

func (l *Log) SendText(_ context.Context, userID, text string) error {
	l.log.Info().Str("user", userID).Msg(text)
	return nil
}

// Fanout delivers to every notifier. Failures are logged and not retried;
// an error is returned only when no notifier succeeded.
type Fanout struct {
	notifiers []engine.Notifier
	log       zerolog.Logger
}

func NewFanout(log zerolog.Logger, notifiers ...engine.Notifier) *Fanout {
	return &Fanout{notifiers: notifiers, log: log.With().Str("component", "notify").Logger()}
}

func (f *Fanout) SendCard(ctx context.Context, userID string, p engine.Prompt) error {
	return f.each(userID, func(n engine.Notifier) error { return n.SendCard(ctx, userID, p) })
}

func (f *Fanout) SendText(ctx context.Context, userID, text string) error {
	return f.each(userID, func(n engine.Notifier) error { return n.SendText(ctx, userID, text) })
}

func (f *Fanout) each(userID string, send func(engine.Notifier) error) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := send(n); err != nil {
			f.log.Debug().Err(err).Str("user", userID).Msg("[notify] delivery failed")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(f.notifiers) {
		return errors.Join(errs...)
	}
	return nil
}
