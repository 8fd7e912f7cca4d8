package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes
		r.Post("/login", h.LoginHandler)
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/status", h.StatusHandler)
			r.Post("/checkin/{cardId}", h.CheckInHandler)
			r.Post("/checkout", h.CheckOutHandler)
			r.Post("/checkout/{userId}", h.ForceCheckOutHandler)
			r.Get("/log/{userId}", h.LogHandler)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	if os.Getenv("JWT_DEBUG") == "1" {
		expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

		_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
			"user_id": int64(1),
			"exp":     expirationTime,
		})

		log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
	}
}
