package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clusterpass/checkin-services/internal/socketsvc/ws"
)

func TestHandleWebSocketRejectsPlainHTTP(t *testing.T) {
	h := NewHandler(ws.NewWs())

	req := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
	w := httptest.NewRecorder()
	h.HandleWebSocket(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-websocket request, got %d", w.Code)
	}
	// the upgrader already answered the client; nothing may write a second body
	if strings.Contains(w.Body.String(), "Failed to upgrade") {
		t.Fatalf("response written twice: %s", w.Body.String())
	}
}
