package server

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"heartlink-server/internal/auth"
	"heartlink-server/internal/store"
)

type harness struct {
	store    *store.Store
	tokenCfg auth.TokenConfig
	router   *gin.Engine
	srv      *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tokenCfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	r := NewRouter(Deps{Store: st, TokenConfig: tokenCfg})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &harness{store: st, tokenCfg: tokenCfg, router: r, srv: srv}
}

func (h *harness) createUser(t *testing.T, username string) string {
	t.Helper()
	hash, err := auth.HashPassword("pa$$w0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := h.store.CreateUser(username, hash, time.Now().UnixMilli()); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	tok, err := auth.CreateToken(username, h.tokenCfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	return tok
}

func (h *harness) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http") + path
}

func (h *harness) dialPresence(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL("/ws/presence?token="+token), nil)
	if err != nil {
		t.Fatalf("Dial presence: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *harness) dialChat(t *testing.T, token, other string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL("/ws/messages?token="+token+"&user="+other), nil)
	if err != nil {
		t.Fatalf("Dial chat: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type testEvent struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body"`
}

func readEvent(t *testing.T, conn *websocket.Conn) testEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev testEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return ev
}

func expectEvent(t *testing.T, conn *websocket.Conn, event string) testEvent {
	t.Helper()
	ev := readEvent(t, conn)
	if ev.Event != event {
		t.Fatalf("expected event %q, got %q (%s)", event, ev.Event, string(ev.Body))
	}
	return ev
}
