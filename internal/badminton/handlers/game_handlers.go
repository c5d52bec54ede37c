package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/service"
)

type createGameRequest struct {
	Title      string  `json:"title"`
	GameDate   string  `json:"game_date"` // YYYY-MM-DD
	GameTime   string  `json:"game_time"` // hh:mm, 24h
	EndTime    string  `json:"end_time"`  // hh:mm, 24h
	Location   string  `json:"location"`
	CourtCount int     `json:"court_count"`
	Price      float64 `json:"price"`
	MaxPlayers int     `json:"max_players"`
	Notes      string  `json:"notes"`
}

func (h *Handler) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromCtx(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validation("invalid request body"))
		return
	}

	startsAt, err := time.ParseInLocation("2006-01-02 15:04", req.GameDate+" "+req.GameTime, time.Local)
	if err != nil {
		h.respondError(w, apperr.Validation("invalid date or start time, use YYYY-MM-DD and hh:mm"))
		return
	}
	endsAt, err := time.ParseInLocation("2006-01-02 15:04", req.GameDate+" "+req.EndTime, time.Local)
	if err != nil {
		h.respondError(w, apperr.Validation("invalid end time, use hh:mm"))
		return
	}

	game, err := h.games.Create(r.Context(), userID, service.CreateGameParams{
		Title:      req.Title,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		Location:   req.Location,
		CourtCount: req.CourtCount,
		Price:      req.Price,
		MaxPlayers: req.MaxPlayers,
		Notes:      req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusCreated, Response{
		Success: true,
		Message: "game created",
		Data:    game,
	})
}

func (h *Handler) CancelGameHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromCtx(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	gameID, err := gameIDParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	game, err := h.games.Cancel(r.Context(), gameID, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusOK, Response{
		Success: true,
		Message: "game canceled",
		Data:    game,
	})
}

func (h *Handler) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.All(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.CreateResponse(w, http.StatusOK, Response{Success: true, Data: games})
}

func (h *Handler) HostedGamesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromCtx(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	games, err := h.games.Hosted(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.CreateResponse(w, http.StatusOK, Response{Success: true, Data: games})
}

func (h *Handler) JoinedGamesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromCtx(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	games, err := h.games.Joined(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.CreateResponse(w, http.StatusOK, Response{Success: true, Data: games})
}
