package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/models"
	"github.com/clusterpass/checkin-services/internal/checkinsvc/service"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

// Core is the allocation service surface the HTTP layer depends on.
type Core interface {
	CheckIn(ctx context.Context, userID, cardID int64) bool
	CheckOut(ctx context.Context, userID int64) error
	ForceCheckOut(ctx context.Context, adminID, targetUserID int64) (*models.User, error)
	Status(ctx context.Context, userID int64) (*service.StatusInfo, error)
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// UserRegistry registers accounts on first login.
type UserRegistry interface {
	GetOrCreateUser(ctx context.Context, user models.User) (*models.User, error)
}

// LogReader serves the admin transaction history endpoint.
type LogReader interface {
	RecentLogsByUser(ctx context.Context, userID int64, limit int64) ([]*models.AuditLog, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	checkin   Core
	users     UserRegistry
	logs      LogReader
}

func NewHandler(checkin Core, users UserRegistry, logs LogReader) *Handler {
	return &Handler{checkin: checkin, users: users, logs: logs}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "checkin service is running at port " + os.Getenv("CHECKIN_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}

// userID extracts the authenticated account id from the JWT claims.
func (h *Handler) userID(r *http.Request) (int64, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return 0, err
	}

	v, ok := claims["user_id"]
	if !ok {
		return 0, fmt.Errorf("user_id claim missing")
	}

	switch id := v.(type) {
	case float64:
		return int64(id), nil
	case int64:
		return id, nil
	case json.Number:
		return id.Int64()
	default:
		return 0, fmt.Errorf("user_id claim has unexpected type %T", v)
	}
}

type LoginRequest struct {
	UserId int64  `json:"user_id"`
	Email  string `json:"email"`
}

// LoginHandler upserts the account and issues the JWT used by every other
// endpoint. Returning users get their email refreshed.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == 0 {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid login payload"})
		return
	}

	user, err := h.users.GetOrCreateUser(r.Context(), models.User{UserId: req.UserId, Email: req.Email})
	if err != nil {
		log.Errorf("login failed for user %d: %v", req.UserId, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "login failed"})
		return
	}

	expirationTime := time.Now().Add(24 * time.Hour).Unix()
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"user_id": user.UserId,
		"exp":     expirationTime,
	})
	if err != nil {
		log.Errorf("token issue failed for user %d: %v", user.UserId, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "login failed"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: map[string]interface{}{
		"token": tokenString,
		"user":  user,
	}})
}

// CheckInHandler claims the card named in the URL for the caller. The core
// reports every failure as a plain false, so the response is a generic 400.
func (h *Handler) CheckInHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	cardID, err := strconv.ParseInt(chi.URLParam(r, "cardId"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	if !h.checkin.CheckIn(r.Context(), userID, cardID) {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Message: "check in failed"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Message: "checked in"})
}

func (h *Handler) CheckOutHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	if err := h.checkin.CheckOut(r.Context(), userID); err != nil {
		h.CreateResponse(w, Response{Code: statusFor(err), Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Message: "checked out"})
}

// ForceCheckOutHandler returns another user's card; admin only.
func (h *Handler) ForceCheckOutHandler(w http.ResponseWriter, r *http.Request) {
	adminID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid user id"})
		return
	}

	user, err := h.checkin.ForceCheckOut(r.Context(), adminID, targetID)
	if err != nil {
		h.CreateResponse(w, Response{Code: statusFor(err), Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Message: "checked out", Data: user})
}

func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	info, err := h.checkin.Status(r.Context(), userID)
	if err != nil {
		h.CreateResponse(w, Response{Code: statusFor(err), Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: info})
}

// LogHandler lists a user's recent transactions; admin only.
func (h *Handler) LogHandler(w http.ResponseWriter, r *http.Request) {
	callerID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	isAdmin, err := h.checkin.IsAdmin(r.Context(), callerID)
	if err != nil {
		h.CreateResponse(w, Response{Code: statusFor(err), Error: err.Error()})
		return
	}
	if !isAdmin {
		h.CreateResponse(w, Response{Code: http.StatusForbidden, Error: service.ErrForbidden.Error()})
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid user id"})
		return
	}

	entries, err := h.logs.RecentLogsByUser(r.Context(), targetID, 50)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to read logs"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: entries})
}

// statusFor maps core sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNoActiveCard):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCardInUse), errors.Is(err, service.ErrPoolFull):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
