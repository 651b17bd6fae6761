package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_Delivers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	ctx := context.Background()

	assert.ErrorIs(t, hub.SendText(ctx, "u1", "hello"), ErrNotConnected)

	first := dial(t, srv, "?user=u1")
	second := dial(t, srv, "?user=u1")
	require.Eventually(t, func() bool { return hub.Connected("u1") == 2 }, time.Second, 5*time.Millisecond)

	prompt := engine.Prompt{RoomID: "R1", Action: engine.ActionPickHero, Position: 1, Text: "pick", Options: []string{"Liu Bei@standard"}}
	require.NoError(t, hub.SendCard(ctx, "u1", prompt))

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventCard, ev.Type)
		assert.Equal(t, "R1", ev.Room)
		require.NotNil(t, ev.Prompt)
		assert.Equal(t, prompt, *ev.Prompt)
	}

	require.NoError(t, hub.SendText(ctx, "u1", "It is u2's turn."))
	ev := readEvent(t, first)
	assert.Equal(t, Event{Type: EventText, Text: "It is u2's turn."}, ev)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return hub.Connected("u1") == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_Picks(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	var (
		mu    sync.Mutex
		picks []string
	)
	hub.OnPick(func(_ context.Context, roomID, userID, hero string) error {
		if hero == "Nobody@standard" {
			return errors.New("invalid pick")
		}
		mu.Lock()
		picks = append(picks, roomID+"/"+userID+"/"+hero)
		mu.Unlock()
		return nil
	})

	conn := dial(t, srv, "?user=u2")
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "pick", Room: "R1", Hero: "Cao Cao@standard"}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(picks) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "R1/u2/Cao Cao@standard", picks[0])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "pick", Room: "R1", Hero: "Nobody@standard"}))
	ev := readEvent(t, conn)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "invalid pick", ev.Text)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	ev = readEvent(t, conn)
	assert.Equal(t, EventError, ev.Type)
}

func TestHub_LimitsFrames(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	var (
		mu    sync.Mutex
		count int
	)
	hub.OnPick(func(context.Context, string, string, string) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	conn := dial(t, srv, "?user=u3")
	for i := 0; i < 3*frameBurst; i++ {
		require.NoError(t, conn.WriteJSON(ClientMessage{Type: "pick", Room: "R1", Hero: "Cao Cao@standard"}))
	}

	ev := readEvent(t, conn)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "too many messages", ev.Text)

	mu.Lock()
	defer mu.Unlock()
	assert.Less(t, count, 3*frameBurst)
}

func TestHub_RequiresUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type failingNotifier struct{ err error }

func (f failingNotifier) SendCard(context.Context, string, engine.Prompt) error { return f.err }
func (f failingNotifier) SendText(context.Context, string, string) error        { return f.err }

func TestFanout(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name      string
		notifiers []engine.Notifier
		wantErr   bool
	}{
		{name: "all succeed", notifiers: []engine.Notifier{NewLog(zerolog.Nop()), NewLog(zerolog.Nop())}},
		{name: "one fails", notifiers: []engine.Notifier{failingNotifier{boom}, NewLog(zerolog.Nop())}},
		{name: "all fail", notifiers: []engine.Notifier{failingNotifier{boom}, failingNotifier{ErrNotConnected}}, wantErr: true},
		{name: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFanout(zerolog.Nop(), tt.notifiers...)
			cardErr := f.SendCard(ctx, "u1", engine.Prompt{Text: "pick"})
			textErr := f.SendText(ctx, "u1", "hi")
			if tt.wantErr {
				assert.ErrorIs(t, cardErr, boom)
				assert.ErrorIs(t, textErr, ErrNotConnected)
				return
			}
			assert.NoError(t, cardErr)
			assert.NoError(t, textErr)
		})
	}
}
