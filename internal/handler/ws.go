package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"heartlink-server/internal/hub"
)

const (
	wsReadLimit  = 1024 * 1024
	wsPongWait   = 60 * time.Second
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server-to-client events on both channels.
const (
	eventOnlineUsers          = "onlineUsers"
	eventUserIsOnline         = "userIsOnline"
	eventUserIsOffline        = "userIsOffline"
	eventReceiveMessageThread = "receiveMessageThread"
	eventNewMessage           = "newMessage"
	eventNewMessageReceived   = "newMessageReceived"
	eventError                = "error"
)

type wsEvent struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// wsWriter serializes writes to one socket; pushes arrive concurrently from
// other users' handler goroutines.
type wsWriter struct {
	sendMu sync.Mutex
	conn   *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

func sendEvent(conn *hub.Conn, ev wsEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Writer.Write(data)
}

// pushEvent is the fire-and-forget variant for fan-out. A failed push is
// logged and the dead socket closed; its own read loop then runs the normal
// cleanup path.
func pushEvent(conn *hub.Conn, ev wsEvent) {
	if err := sendEvent(conn, ev); err != nil {
		log.Printf("ws push to %s failed: %v", conn.Username, err)
		_ = conn.Writer.Close()
	}
}

func sendError(conn *hub.Conn, message string) {
	_ = sendEvent(conn, wsEvent{Event: eventError, Body: map[string]string{"message": message}})
}

// keepAlive pings the peer and enforces a read deadline so a silently dead
// transport is detected within the pong window and takes the same cleanup
// path as a clean close.
func keepAlive(ws *websocket.Conn, done <-chan struct{}) {
	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(wsWriteWait)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	}()
}
