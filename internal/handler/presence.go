package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"heartlink-server/internal/auth"
	"heartlink-server/internal/hub"
	"heartlink-server/internal/store"
)

// PresenceHandler runs one websocket per client session. The registry is the
// source of truth for who is online; a user is online while at least one of
// their sessions is connected.
type PresenceHandler struct {
	Registry    *hub.Registry
	Store       *store.Store
	TokenConfig auth.TokenConfig
}

// resolveCaller verifies the query token and confirms the username still
// exists in the directory. Failure refuses the connection before upgrade.
func resolveCaller(c *gin.Context, cfg auth.TokenConfig, st *store.Store) (string, bool) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return "", false
	}
	claims, err := auth.VerifyToken(tokenString, cfg)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return "", false
	}
	username := strings.ToLower(claims.Username)
	if _, err := st.UserByUsername(username); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return "", false
	}
	return username, true
}

func (h *PresenceHandler) Serve(c *gin.Context) {
	username, ok := resolveCaller(c, h.TokenConfig, h.Store)
	if !ok {
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := hub.NewConn(username, &wsWriter{conn: ws})
	first := h.Registry.Add(username, conn)
	defer func() {
		// Runs once per connection; Remove is idempotent so a racing
		// transport close cannot double-fire the offline broadcast.
		if last := h.Registry.Remove(username, conn); last {
			h.broadcastExcept(conn, wsEvent{Event: eventUserIsOffline, Body: username})
		}
		_ = ws.Close()
	}()

	if first {
		h.broadcastExcept(conn, wsEvent{Event: eventUserIsOnline, Body: username})
	}
	_ = sendEvent(conn, wsEvent{Event: eventOnlineUsers, Body: h.Registry.OnlineUsernames()})

	done := make(chan struct{})
	defer close(done)
	keepAlive(ws, done)

	// Presence clients send nothing after the handshake; drain until the
	// transport closes.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *PresenceHandler) broadcastExcept(skip *hub.Conn, ev wsEvent) {
	for _, conn := range h.Registry.Connections() {
		if conn == skip {
			continue
		}
		pushEvent(conn, ev)
	}
}
