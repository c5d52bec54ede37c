package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/models"
	"github.com/bonniEdo/badminton-go/internal/badminton/service"
)

type joinRequest struct {
	Phone         string  `json:"phone"`
	IncludeFriend bool    `json:"include_friend"`
	FriendLevel   float64 `json:"friend_level"`
}

func (h *Handler) JoinHandler(w http.ResponseWriter, r *http.Request) {
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

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.roster.Join(r.Context(), service.JoinParams{
		GameID:      gameID,
		UserID:      userID,
		Phone:       req.Phone,
		BringsGuest: req.IncludeFriend,
		GuestLevel:  req.FriendLevel,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	message := "joined successfully"
	if result.Status == models.StatusWaitlist {
		message = fmt.Sprintf("game is full, your party is #%d on the waitlist", result.WaitlistPosition)
	}
	h.CreateResponse(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    result,
	})
}

type addGuestRequest struct {
	FriendLevel float64 `json:"friend_level"`
}

func (h *Handler) AddGuestHandler(w http.ResponseWriter, r *http.Request) {
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

	var req addGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.roster.AddGuest(r.Context(), gameID, userID, req.FriendLevel)
	if err != nil {
		h.respondError(w, err)
		return
	}

	message := "guest added"
	if result.Demoted {
		message = "guest added, no room left so your party moved to the waitlist"
	}
	h.CreateResponse(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    result,
	})
}

type cancelJoinRequest struct {
	CancelType string `json:"cancel_type"`
}

func (h *Handler) CancelJoinHandler(w http.ResponseWriter, r *http.Request) {
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

	var req cancelJoinRequest
	if r.Body != nil {
		// Body is optional; absent means full cancellation.
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.roster.Cancel(r.Context(), gameID, userID, req.CancelType)
	if err != nil {
		h.respondError(w, err)
		return
	}

	message := result.Message
	if result.PromotedCount > 0 {
		message = fmt.Sprintf("%s, promoted %d from the waitlist", message, result.PromotedCount)
	}
	h.CreateResponse(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    result,
	})
}

func (h *Handler) PlayersHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := gameIDParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	result, err := h.roster.Players(r.Context(), gameID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusOK, Response{Success: true, Data: result})
}

func (h *Handler) ActivityHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := gameIDParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if h.activity == nil {
		h.respondError(w, apperr.NotFound("activity feed is not enabled"))
		return
	}

	events, err := h.activity.Recent(r.Context(), gameID, 50)
	if err != nil {
		h.respondError(w, apperr.Wrap(err, "failed to load activity feed"))
		return
	}

	h.CreateResponse(w, http.StatusOK, Response{Success: true, Data: events})
}
