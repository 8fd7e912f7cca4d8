package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/models"
	"github.com/clusterpass/checkin-services/internal/checkinsvc/service"
	"github.com/go-chi/chi"
)

type fakeCore struct {
	checkInOK   bool
	checkInUser int64
	checkInCard int64
	checkOutErr error
	forceUser   *models.User
	forceErr    error
	statusInfo  *service.StatusInfo
	statusErr   error
	isAdmin     bool
}

func (f *fakeCore) CheckIn(ctx context.Context, userID, cardID int64) bool {
	f.checkInUser = userID
	f.checkInCard = cardID
	return f.checkInOK
}

func (f *fakeCore) CheckOut(ctx context.Context, userID int64) error {
	return f.checkOutErr
}

func (f *fakeCore) ForceCheckOut(ctx context.Context, adminID, targetUserID int64) (*models.User, error) {
	if f.forceErr != nil {
		return nil, f.forceErr
	}
	return f.forceUser, nil
}

func (f *fakeCore) Status(ctx context.Context, userID int64) (*service.StatusInfo, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusInfo, nil
}

func (f *fakeCore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return f.isAdmin, nil
}

type fakeUsers struct {
	upserted []models.User
	err      error
}

func (f *fakeUsers) GetOrCreateUser(ctx context.Context, user models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserted = append(f.upserted, user)
	cp := user
	return &cp, nil
}

type fakeLogs struct {
	entries []*models.AuditLog
	err     error
}

func (f *fakeLogs) RecentLogsByUser(ctx context.Context, userID int64, limit int64) ([]*models.AuditLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func newTestRouter(t *testing.T, core Core, logs LogReader) (*chi.Mux, string) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	h := NewHandler(core, &fakeUsers{}, logs)
	h.InitAuth()

	r := chi.NewRouter()
	h.SetRoutes(r)

	_, token, err := h.tokenAuth.Encode(map[string]interface{}{"user_id": int64(42)})
	if err != nil {
		t.Fatalf("token encode: %v", err)
	}
	return r, token
}

func doRequest(r *chi.Mux, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginHandler(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	users := &fakeUsers{}
	h := NewHandler(&fakeCore{}, users, &fakeLogs{})
	h.InitAuth()
	r := chi.NewRouter()
	h.SetRoutes(r)

	body := strings.NewReader(`{"user_id": 42, "email": "a@b.c"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/login", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(users.upserted) != 1 || users.upserted[0].UserId != 42 || users.upserted[0].Email != "a@b.c" {
		t.Fatalf("unexpected upsert %+v", users.upserted)
	}

	var rsp struct {
		Data struct {
			Token string       `json:"token"`
			User  *models.User `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&rsp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rsp.Data.Token == "" {
		t.Fatalf("expected a token in the login response")
	}

	// the issued token must be accepted by the secured routes
	req = httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	req.Header.Set("Authorization", "Bearer "+rsp.Data.Token)
	core := &fakeCore{statusInfo: &service.StatusInfo{User: &models.User{UserId: 42}}}
	h.checkin = core
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("issued token rejected: %d %s", w.Code, w.Body.String())
	}

	// malformed payloads are rejected before any store work
	req = httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(`{"email": "a@b.c"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user_id, got %d", w.Code)
	}
	if len(users.upserted) != 1 {
		t.Fatalf("rejected login must not hit the store")
	}
}

func TestHealthIsPublic(t *testing.T) {
	r, _ := newTestRouter(t, &fakeCore{}, &fakeLogs{})

	w := doRequest(r, http.MethodGet, "/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health must not require a token, got %d", w.Code)
	}
}

func TestCheckInHandler(t *testing.T) {
	core := &fakeCore{checkInOK: true}
	r, token := newTestRouter(t, core, &fakeLogs{})

	w := doRequest(r, http.MethodPost, "/v1/checkin/7", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if core.checkInUser != 42 || core.checkInCard != 7 {
		t.Fatalf("core called with user %d card %d", core.checkInUser, core.checkInCard)
	}

	core.checkInOK = false
	w = doRequest(r, http.MethodPost, "/v1/checkin/7", token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on rejected check-in, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, "/v1/checkin/notanumber", token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad card id, got %d", w.Code)
	}
}

func TestCheckInRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t, &fakeCore{checkInOK: true}, &fakeLogs{})

	w := doRequest(r, http.MethodPost, "/v1/checkin/7", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestCheckOutHandlerStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"no active card", service.ErrNoActiveCard, http.StatusNotFound},
		{"unknown user", service.ErrUserNotFound, http.StatusNotFound},
		{"store failure", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, token := newTestRouter(t, &fakeCore{checkOutErr: tt.err}, &fakeLogs{})
			w := doRequest(r, http.MethodPost, "/v1/checkout", token)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestForceCheckOutHandler(t *testing.T) {
	r, token := newTestRouter(t, &fakeCore{forceErr: service.ErrForbidden}, &fakeLogs{})
	w := doRequest(r, http.MethodPost, "/v1/checkout/9", token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}

	cardID := int64(7)
	r, token = newTestRouter(t, &fakeCore{forceUser: &models.User{UserId: 9, CardID: &cardID}}, &fakeLogs{})
	w = doRequest(r, http.MethodPost, "/v1/checkout/9", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rsp Response
	if err := json.NewDecoder(w.Body).Decode(&rsp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rsp.Data == nil {
		t.Fatalf("expected the updated user in the response data")
	}
}

func TestStatusHandler(t *testing.T) {
	core := &fakeCore{
		statusInfo: &service.StatusInfo{
			User:  &models.User{UserId: 42},
			Pools: service.PoolUsage{East: 3, West: 1},
		},
	}
	r, token := newTestRouter(t, core, &fakeLogs{})

	w := doRequest(r, http.MethodGet, "/v1/status", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var rsp struct {
		Data service.StatusInfo `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&rsp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rsp.Data.Pools.East != 3 || rsp.Data.Pools.West != 1 {
		t.Fatalf("unexpected pool usage %+v", rsp.Data.Pools)
	}
}

func TestLogHandlerAdminOnly(t *testing.T) {
	logs := &fakeLogs{entries: []*models.AuditLog{
		{UserID: 9, CardID: 7, Action: models.ActionCheckIn},
	}}

	r, token := newTestRouter(t, &fakeCore{isAdmin: false}, logs)
	w := doRequest(r, http.MethodGet, "/v1/log/9", token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}

	r, token = newTestRouter(t, &fakeCore{isAdmin: true}, logs)
	w = doRequest(r, http.MethodGet, "/v1/log/9", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}

	var rsp struct {
		Data []*models.AuditLog `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&rsp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rsp.Data) != 1 || rsp.Data[0].Action != models.ActionCheckIn {
		t.Fatalf("unexpected log payload %+v", rsp.Data)
	}
}
