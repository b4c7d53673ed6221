package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"heartlink-server/internal/auth"
	"heartlink-server/internal/hub"
	"heartlink-server/internal/model"
	"heartlink-server/internal/store"
)

const previewLength = 80

// ChatHandler runs one websocket per open conversation view. Joining marks
// the caller's unread side of the thread as read; sends are persisted first,
// then fanned out to whoever has the conversation open.
type ChatHandler struct {
	Registry    *hub.Registry
	Groups      *hub.GroupTracker
	Store       *store.Store
	TokenConfig auth.TokenConfig
}

type chatClientMessage struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient,omitempty"`
	Content   string `json:"content,omitempty"`
}

func (h *ChatHandler) Serve(c *gin.Context) {
	username, ok := resolveCaller(c, h.TokenConfig, h.Store)
	if !ok {
		return
	}

	other := strings.ToLower(c.Query("user"))
	if other == "" || other == username {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation partner"})
		return
	}
	if _, err := h.Store.UserByUsername(other); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User not found"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := hub.NewConn(username, &wsWriter{conn: ws})
	groupName := hub.GroupName(username, other)
	h.Groups.Join(groupName, conn)
	defer func() {
		h.Groups.Leave(conn)
		_ = ws.Close()
	}()

	h.deliverThread(conn, username, other)

	done := make(chan struct{})
	defer close(done)
	keepAlive(ws, done)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg chatClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			_ = sendEvent(conn, wsEvent{Event: "pong"})
		case "sendMessage":
			h.handleSend(conn, username, other, msg)
		}
	}
}

// deliverThread marks every unread message addressed to the joiner in this
// conversation as read, then pushes the full thread oldest-first.
func (h *ChatHandler) deliverThread(conn *hub.Conn, username, other string) {
	now := time.Now().UnixMilli()
	unread, err := h.Store.UnreadFrom(username, other)
	if err != nil {
		sendError(conn, "Failed to load conversation")
		return
	}
	for _, m := range unread {
		if err := h.Store.MarkRead(m.ID, now); err != nil {
			log.Printf("mark read %s: %v", m.ID, err)
		}
	}

	thread, err := h.Store.Thread(username, other)
	if err != nil {
		sendError(conn, "Failed to load conversation")
		return
	}
	_ = sendEvent(conn, wsEvent{Event: eventReceiveMessageThread, Body: thread})
}

func (h *ChatHandler) handleSend(conn *hub.Conn, sender, other string, msg chatClientMessage) {
	recipient := strings.ToLower(msg.Recipient)
	if msg.Content == "" {
		sendError(conn, "Message content is required")
		return
	}
	if recipient == sender {
		sendError(conn, "You cannot send messages to yourself")
		return
	}
	// The connection joined one conversation; it may only send inside it.
	// The partner was resolved against the directory at join time.
	if recipient != other {
		sendError(conn, "Recipient is not part of this conversation")
		return
	}

	record := model.Message{
		ID:                uuid.NewString(),
		SenderUsername:    sender,
		RecipientUsername: recipient,
		Content:           msg.Content,
		CreatedAt:         time.Now().UnixMilli(),
	}
	if err := h.Store.CreateMessage(&record); err != nil {
		// Not durable, so nobody may observe it: no broadcast, no read mark.
		log.Printf("create message from %s: %v", sender, err)
		sendError(conn, "Failed to send message")
		return
	}

	groupName := hub.GroupName(sender, recipient)
	members := h.Groups.Members(groupName)

	recipientInGroup := false
	for _, member := range members {
		if member.Username == recipient {
			recipientInGroup = true
			break
		}
	}

	now := time.Now().UnixMilli()
	if recipientInGroup {
		// Recipient is viewing the conversation: the message is read the
		// moment it lands.
		if err := h.Store.MarkRead(record.ID, now); err != nil {
			log.Printf("mark read %s: %v", record.ID, err)
		} else {
			record.ReadAt = &now
		}
		if err := h.Store.MarkDelivered(record.ID, now); err != nil {
			log.Printf("mark delivered %s: %v", record.ID, err)
		} else {
			record.DeliveredAt = &now
		}
	} else if presenceConns := h.Registry.ConnectionsFor(recipient); len(presenceConns) > 0 {
		// Online but not viewing this conversation: surface an alert on
		// every active session instead.
		if err := h.Store.MarkDelivered(record.ID, now); err != nil {
			log.Printf("mark delivered %s: %v", record.ID, err)
		} else {
			record.DeliveredAt = &now
		}
		notification := wsEvent{Event: eventNewMessageReceived, Body: gin.H{
			"username": sender,
			"preview":  preview(record.Content),
		}}
		for _, pc := range presenceConns {
			pushEvent(pc, notification)
		}
	}
	// Offline recipients get nothing in real time; the stored record is
	// their durable fallback.

	// The group broadcast doubles as the sender's ack with the persisted
	// record; the sender is always a member of the group it joined.
	ev := wsEvent{Event: eventNewMessage, Body: record}
	for _, member := range members {
		pushEvent(member, ev)
	}
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength])
}
