package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/models"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/room"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/service"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/store"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/worker"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	pool, err := worker.NewPool(8, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close(time.Second) })

	arch := archive.NewMemoryRepository()
	rooms := room.NewManager(room.Deps{
		Store:   store.NewMemoryStore(),
		Pool:    pool,
		Archive: arch,
		Log:     zerolog.Nop(),
	}, room.Options{Owner: "test-node", PickTimeout: 10 * time.Second})
	handler := NewHandler(service.NewGameService(rooms, arch, 5, 10), nil, zerolog.Nop())

	router := chi.NewRouter()
	router.Use(RequestIDMiddleware)
	router.Mount("/", handler.Routes())
	return router
}

func do(t *testing.T, router http.Handler, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func makeRoom(t *testing.T, router http.Handler, seats int) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/v1/rooms", models.MakeRoomRequest{Seats: seats, Traitors: 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp models.MakeRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.RoomID
}

func TestHandler_Health(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandler_MakeRoom(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{name: "valid request", requestBody: models.MakeRoomRequest{Seats: 5, Traitors: 1}, expectedStatus: http.StatusCreated},
		{name: "no traitors", requestBody: models.MakeRoomRequest{Seats: 8}, expectedStatus: http.StatusCreated},
		{name: "too few seats", requestBody: models.MakeRoomRequest{Seats: 3, Traitors: 1}, expectedStatus: http.StatusBadRequest},
		{name: "too many traitors", requestBody: models.MakeRoomRequest{Seats: 5, Traitors: 4}, expectedStatus: http.StatusBadRequest},
		{name: "invalid JSON", requestBody: "not json", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/v1/rooms", tt.requestBody)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if w.Code == http.StatusCreated {
				var resp models.MakeRoomResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Contains(t, resp.RoomID, "room_")
				return
			}
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandler_GetRole(t *testing.T) {
	router := newTestRouter(t)
	roomID := makeRoom(t, router, 5)

	tests := []struct {
		name           string
		roomID         string
		requestBody    interface{}
		expectedStatus int
	}{
		{name: "first seat", roomID: roomID, requestBody: models.GetRoleRequest{UserID: "u1"}, expectedStatus: http.StatusOK},
		{name: "same user again", roomID: roomID, requestBody: models.GetRoleRequest{UserID: "u1"}, expectedStatus: http.StatusOK},
		{name: "missing user", roomID: roomID, requestBody: models.GetRoleRequest{}, expectedStatus: http.StatusBadRequest},
		{name: "unknown room", roomID: "room_missing", requestBody: models.GetRoleRequest{UserID: "u1"}, expectedStatus: http.StatusNotFound},
		{name: "invalid JSON", roomID: roomID, requestBody: "{", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/v1/rooms/"+tt.roomID+"/roles", tt.requestBody)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if w.Code != http.StatusOK {
				return
			}
			var resp models.GetRoleResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, roomID, resp.RoomID)
			assert.NotEmpty(t, resp.Role)
		})
	}
}

func TestHandler_GameFlow(t *testing.T) {
	router := newTestRouter(t)
	roomID := makeRoom(t, router, 5)

	// no game before the room is full
	w := do(t, router, http.MethodGet, "/v1/rooms/"+roomID+"/positions", nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	w = do(t, router, http.MethodPost, "/v1/rooms/"+roomID+"/picks", models.PickRequest{UserID: "u1", Hero: "Cao Cao@standard"})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	for i := 1; i <= 5; i++ {
		w := do(t, router, http.MethodPost, "/v1/rooms/"+roomID+"/roles", models.GetRoleRequest{UserID: fmt.Sprintf("u%d", i)})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/v1/rooms/"+roomID+"/roles", models.GetRoleRequest{UserID: "u6"})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	var positions models.PositionsResponse
	require.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, "/v1/rooms/"+roomID+"/positions", nil)
		if w.Code != http.StatusOK {
			return false
		}
		return json.Unmarshal(w.Body.Bytes(), &positions) == nil
	}, 3*time.Second, 10*time.Millisecond)
	require.Len(t, positions.Seats, 5)
	assert.True(t, positions.Seats[0].Lord)

	w = do(t, router, http.MethodPost, "/v1/rooms/"+roomID+"/picks", models.PickRequest{UserID: "u1", Hero: "Nobody@standard"})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	w = do(t, router, http.MethodPost, "/v1/rooms/"+roomID+"/picks", models.PickRequest{UserID: "stranger", Hero: "Cao Cao@standard"})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/v1/rooms/"+roomID+"/picks", models.PickRequest{UserID: positions.Seats[0].UserID, Hero: "Cao Cao@standard"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"accepted"}`, w.Body.String())

	require.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, "/v1/users/u1/games", nil)
		var resp models.UserGamesResponse
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &resp) != nil {
			return false
		}
		return len(resp.Games) == 1 && resp.Games[0].RoomID == roomID
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHandler_UserGamesEmpty(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/v1/users/nobody/games", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"nobody","games":[]}`, w.Body.String())
}

func TestHandler_PositionsUnknownRoom(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/v1/rooms/room_missing/positions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_WinsAndTokens(t *testing.T) {
	router := newTestRouter(t)

	steps := []struct {
		name           string
		method         string
		url            string
		body           interface{}
		expectedStatus int
		expectedBody   string
	}{
		{name: "no tokens yet", method: http.MethodGet, url: "/v1/users/u1/tokens",
			expectedStatus: http.StatusOK, expectedBody: `{"user_id":"u1","wins":0,"luck":0,"rep":0}`},
		{name: "spend without wins", method: http.MethodPost, url: "/v1/users/u1/tokens/luck/spend",
			expectedStatus: http.StatusConflict},
		{name: "missing hero", method: http.MethodPost, url: "/v1/users/u1/wins",
			body: models.RecordWinRequest{GameMode: "3v3"}, expectedStatus: http.StatusBadRequest},
		{name: "invalid JSON", method: http.MethodPost, url: "/v1/users/u1/wins",
			body: "{", expectedStatus: http.StatusBadRequest},
		{name: "record win", method: http.MethodPost, url: "/v1/users/u1/wins",
			body: models.RecordWinRequest{GameMode: "3v3", Hero: "Pang De"}, expectedStatus: http.StatusCreated},
		{name: "second win inside cooldown", method: http.MethodPost, url: "/v1/users/u1/wins",
			body: models.RecordWinRequest{GameMode: "3v3", Hero: "Cao Cao"}, expectedStatus: http.StatusTooManyRequests},
		{name: "one of each token", method: http.MethodGet, url: "/v1/users/u1/tokens",
			expectedStatus: http.StatusOK, expectedBody: `{"user_id":"u1","wins":1,"luck":1,"rep":1}`},
		{name: "spend luck", method: http.MethodPost, url: "/v1/users/u1/tokens/luck/spend",
			expectedStatus: http.StatusOK, expectedBody: `{"user_id":"u1","wins":1,"luck":0,"rep":1}`},
		{name: "luck spent", method: http.MethodPost, url: "/v1/users/u1/tokens/luck/spend",
			expectedStatus: http.StatusConflict},
		{name: "unknown kind", method: http.MethodPost, url: "/v1/users/u1/tokens/gold/spend",
			expectedStatus: http.StatusBadRequest},
	}

	// steps share one router and run in order
	for _, tt := range steps {
		w := do(t, router, tt.method, tt.url, tt.body)
		require.Equal(t, tt.expectedStatus, w.Code, "%s: %s", tt.name, w.Body.String())
		if tt.expectedBody != "" {
			assert.JSONEq(t, tt.expectedBody, w.Body.String(), tt.name)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", service.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("x: %w", engine.ErrInvalidSeatCount), http.StatusBadRequest},
		{fmt.Errorf("x: %w", engine.ErrInvalidTraitorCount), http.StatusBadRequest},
		{fmt.Errorf("x: %w", room.ErrInvalidPick), http.StatusBadRequest},
		{fmt.Errorf("x: %w", room.ErrRoomNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", room.ErrRolesExhausted), http.StatusConflict},
		{fmt.Errorf("x: %w", room.ErrRoomNotActive), http.StatusConflict},
		{fmt.Errorf("x: %w", archive.ErrUnknownToken), http.StatusBadRequest},
		{fmt.Errorf("x: %w", archive.ErrNoTokens), http.StatusConflict},
		{fmt.Errorf("x: %w", archive.ErrWinTooSoon), http.StatusTooManyRequests},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{room.ErrPublishMismatch, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRequestIDMiddleware_KeepsCallerID(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Empty(t, GetRequestID(context.Background()))
}
