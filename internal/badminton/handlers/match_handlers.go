package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/service"
)

type checkInRequest struct {
	GameID int64 `json:"game_id"`
}

func (h *Handler) CheckInHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromCtx(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID <= 0 {
		h.respondError(w, apperr.Validation("game_id is required"))
		return
	}

	if err := h.matches.CheckIn(r.Context(), req.GameID, userID); err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusOK, Response{
		Success: true,
		Message: "checked in, you and your guest are on the board",
	})
}

type startMatchRequest struct {
	GameID  int64  `json:"game_id"`
	Court   string `json:"court_number"`
	Players struct {
		A1 int64 `json:"a1"`
		A2 int64 `json:"a2"`
		B1 int64 `json:"b1"`
		B2 int64 `json:"b2"`
	} `json:"players"`
}

func (h *Handler) StartMatchHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := userIDFromCtx(r.Context()); err != nil {
		h.respondError(w, err)
		return
	}

	var req startMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID <= 0 {
		h.respondError(w, apperr.Validation("invalid request body"))
		return
	}

	match, err := h.matches.StartMatch(r.Context(), service.StartMatchParams{
		GameID:  req.GameID,
		Court:   req.Court,
		EntryID: [4]int64{req.Players.A1, req.Players.A2, req.Players.B1, req.Players.B2},
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusCreated, Response{
		Success: true,
		Message: fmt.Sprintf("court %s is live", req.Court),
		Data:    match,
	})
}

type finishMatchRequest struct {
	MatchID int64  `json:"match_id"`
	Winner  string `json:"winner"`
}

func (h *Handler) FinishMatchHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := userIDFromCtx(r.Context()); err != nil {
		h.respondError(w, err)
		return
	}

	var req finishMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MatchID <= 0 {
		h.respondError(w, apperr.Validation("match_id is required"))
		return
	}

	result, err := h.matches.FinishMatch(r.Context(), req.MatchID, req.Winner)
	if err != nil {
		h.respondError(w, err)
		return
	}

	message := "match finished (not rated)"
	if result.Rated {
		message = "match recorded, player ratings updated"
	}
	h.CreateResponse(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    result,
	})
}

func (h *Handler) LiveStatusHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := gameIDParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	status, err := h.matches.Status(r.Context(), gameID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusOK, Response{Success: true, Data: status})
}

func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromCtx(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	items, err := h.matches.History(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusOK, Response{Success: true, Data: items})
}
