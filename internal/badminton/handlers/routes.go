package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes
		r.Get("/health", h.HealthHandler)
		r.Post("/users/register", h.RegisterHandler)
		r.Post("/users/login", h.LoginHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/users/me", h.ProfileHandler)

			r.Post("/games", h.CreateGameHandler)
			r.Get("/games", h.ListGamesHandler)
			r.Get("/games/mine", h.HostedGamesHandler)
			r.Get("/games/joined", h.JoinedGamesHandler)
			r.Delete("/games/{gameID}", h.CancelGameHandler)

			r.Post("/games/{gameID}/join", h.JoinHandler)
			r.Delete("/games/{gameID}/join", h.CancelJoinHandler)
			r.Post("/games/{gameID}/friend", h.AddGuestHandler)
			r.Get("/games/{gameID}/players", h.PlayersHandler)
			r.Get("/games/{gameID}/activity", h.ActivityHandler)

			r.Post("/matches/checkin", h.CheckInHandler)
			r.Post("/matches/start", h.StartMatchHandler)
			r.Post("/matches/finish", h.FinishMatchHandler)
			r.Get("/matches/live-status/{gameID}", h.LiveStatusHandler)
			r.Get("/matches/history", h.HistoryHandler)
		})
	})
}
