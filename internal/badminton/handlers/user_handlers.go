package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validation("invalid request body"))
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusCreated, Response{
		Success: true,
		Message: "account created",
		Data:    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validation("invalid request body"))
		return
	}

	token, user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusOK, Response{
		Success: true,
		Message: "login successful",
		Data:    loginResponse{Token: token, UserID: user.ID, Username: user.Username},
	})
}

func (h *Handler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromCtx(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	user, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, http.StatusOK, Response{Success: true, Data: user})
}
