package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/archive"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/hero"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/models"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/room"
	"github.com/distrubuted-game-mechanic/sgs-seats/internal/service"
)

const requestTimeout = 5 * time.Second

// Handler holds all HTTP handlers
type Handler struct {
	gameService *service.GameService
	ws          http.Handler
	log         zerolog.Logger
}

// NewHandler creates a new handler. ws serves the websocket endpoint and
// may be nil.
func NewHandler(gameService *service.GameService, ws http.Handler, log zerolog.Logger) *Handler {
	return &Handler{
		gameService: gameService,
		ws:          ws,
		log:         log.With().Str("component", "api").Logger(),
	}
}

// Routes sets up all routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(2 * requestTimeout))
		r.Post("/rooms", h.MakeRoom)
		r.Post("/rooms/{id}/roles", h.GetRole)
		r.Post("/rooms/{id}/picks", h.Pick)
		r.Get("/rooms/{id}/positions", h.Positions)
		r.Get("/users/{id}/games", h.UserGames)
		r.Post("/users/{id}/wins", h.RecordWin)
		r.Get("/users/{id}/tokens", h.Tokens)
		r.Post("/users/{id}/tokens/{kind}/spend", h.SpendToken)
	})

	if h.ws != nil {
		r.Handle("/ws", h.ws)
	}

	r.Get("/healthz", h.Health)

	return r
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MakeRoom handles POST /v1/rooms
func (h *Handler) MakeRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req models.MakeRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.gameService.MakeRoom(ctx, req.Seats, req.Traitors)
	if err != nil {
		h.fail(w, r, "failed to make room", err)
		return
	}

	h.log.Info().
		Str("room_id", resp.RoomID).
		Int("seats", resp.Seats).
		Str("request_id", GetRequestID(r.Context())).
		Msg("Room created")
	h.respondJSON(w, http.StatusCreated, resp)
}

// GetRole handles POST /v1/rooms/{id}/roles
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req models.GetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.gameService.GetRole(ctx, chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		h.fail(w, r, "failed to get role", err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// Pick handles POST /v1/rooms/{id}/picks
func (h *Handler) Pick(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req models.PickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.gameService.PickCharacter(ctx, chi.URLParam(r, "id"), req.UserID, req.Hero); err != nil {
		h.fail(w, r, "failed to pick character", err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, models.PickResponse{Status: "accepted"})
}

// Positions handles GET /v1/rooms/{id}/positions
func (h *Handler) Positions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	roomID := chi.URLParam(r, "id")
	seats, err := h.gameService.GetPositions(ctx, roomID)
	if err != nil {
		h.fail(w, r, "failed to get positions", err)
		return
	}
	h.respondJSON(w, http.StatusOK, models.PositionsResponse{RoomID: roomID, Seats: seats})
}

// UserGames handles GET /v1/users/{id}/games
func (h *Handler) UserGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := chi.URLParam(r, "id")
	games, err := h.gameService.UserGames(ctx, userID)
	if err != nil {
		h.fail(w, r, "failed to get user games", err)
		return
	}
	if games == nil {
		games = []*models.UserGame{}
	}
	h.respondJSON(w, http.StatusOK, models.UserGamesResponse{UserID: userID, Games: games})
}

// RecordWin handles POST /v1/users/{id}/wins
func (h *Handler) RecordWin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req models.RecordWinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	win, err := h.gameService.RecordWin(ctx, chi.URLParam(r, "id"), req.GameMode, req.Hero)
	if err != nil {
		h.fail(w, r, "failed to record win", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, win)
}

// Tokens handles GET /v1/users/{id}/tokens
func (h *Handler) Tokens(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tokens, err := h.gameService.Tokens(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "failed to get tokens", err)
		return
	}
	h.respondJSON(w, http.StatusOK, tokens)
}

// SpendToken handles POST /v1/users/{id}/tokens/{kind}/spend
func (h *Handler) SpendToken(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tokens, err := h.gameService.SpendToken(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "kind"))
	if err != nil {
		h.fail(w, r, "failed to spend token", err)
		return
	}
	h.respondJSON(w, http.StatusOK, tokens)
}

// fail logs err and writes it with the status its kind maps to
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	ev := h.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = h.log.Error()
	}
	ev.Err(err).
		Int("status", status).
		Str("request_id", GetRequestID(r.Context())).
		Msg(msg)
	h.respondError(w, status, msg, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, engine.ErrInvalidSeatCount),
		errors.Is(err, engine.ErrInvalidTraitorCount),
		errors.Is(err, room.ErrInvalidPick),
		errors.Is(err, hero.ErrUnknownHero),
		errors.Is(err, archive.ErrUnknownToken):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrRolesExhausted),
		errors.Is(err, room.ErrRoomNotActive),
		errors.Is(err, archive.ErrNoTokens):
		return http.StatusConflict
	case errors.Is(err, archive.ErrWinTooSoon):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Debug().Err(err).Msg("write response")
	}
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, errorMsg, message string) {
	h.respondJSON(w, status, models.ErrorResponse{
		Error:   errorMsg,
		Message: message,
	})
}
