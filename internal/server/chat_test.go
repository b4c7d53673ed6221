package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gorilla/websocket"
	"heartlink-server/internal/model"
)

func sendChat(t *testing.T, conn *websocket.Conn, recipient, content string) {
	t.Helper()
	err := conn.WriteJSON(map[string]any{"type": "sendMessage", "recipient": recipient, "content": content})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func TestChat_RejectsSelfConversation(t *testing.T) {
	h := newHarness(t)
	toddTok := h.createUser(t, "todd")

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL("/ws/messages?token="+toddTok+"&user=todd"), nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 handshake response")
	}
}

func TestChat_RejectsUnknownPartner(t *testing.T) {
	h := newHarness(t)
	toddTok := h.createUser(t, "todd")

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL("/ws/messages?token="+toddTok+"&user=ghost"), nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 handshake response")
	}
}

func TestChat_SelfMessageRejectedAndNotPersisted(t *testing.T) {
	h := newHarness(t)
	toddTok := h.createUser(t, "todd")
	h.createUser(t, "anna")

	todd := h.dialChat(t, toddTok, "anna")
	expectEvent(t, todd, "receiveMessageThread")

	sendChat(t, todd, "todd", "talking to myself")
	expectEvent(t, todd, "error")

	msgs, err := h.store.Thread("todd", "anna")
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected nothing persisted, got %d", len(msgs))
	}
}

func TestChat_RejectsRecipientOutsideConversation(t *testing.T) {
	h := newHarness(t)
	toddTok := h.createUser(t, "todd")
	h.createUser(t, "anna")
	h.createUser(t, "lisa")

	todd := h.dialChat(t, toddTok, "anna")
	expectEvent(t, todd, "receiveMessageThread")

	sendChat(t, todd, "lisa", "meant for another thread")
	expectEvent(t, todd, "error")

	msgs, err := h.store.Thread("lisa", "todd")
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected nothing persisted, got %d", len(msgs))
	}
}

func TestChat_SendToAbsentRecipientStoresUnread(t *testing.T) {
	h := newHarness(t)
	toddTok := h.createUser(t, "todd")
	annaTok := h.createUser(t, "anna")

	// anna is online (presence) but not viewing the conversation.
	anna := h.dialPresence(t, annaTok)
	expectEvent(t, anna, "onlineUsers")

	todd := h.dialChat(t, toddTok, "anna")
	expectEvent(t, todd, "receiveMessageThread")

	sendChat(t, todd, "anna", "hello")

	ev := expectEvent(t, todd, "newMessage")
	var msg model.Message
	if err := json.Unmarshal(ev.Body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.ReadAt != nil {
		t.Fatalf("expected unread message, got readAt %v", *msg.ReadAt)
	}
	if msg.DeliveredAt == nil {
		t.Fatalf("expected delivered timestamp, recipient had an active session")
	}

	// The alert lands on anna's presence session.
	ev = expectEvent(t, anna, "newMessageReceived")
	var alert struct {
		Username string `json:"username"`
		Preview  string `json:"preview"`
	}
	if err := json.Unmarshal(ev.Body, &alert); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if alert.Username != "todd" || alert.Preview != "hello" {
		t.Fatalf("unexpected alert: %+v", alert)
	}

	msgs, err := h.store.Thread("anna", "todd")
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ReadAt != nil {
		t.Fatalf("expected one stored unread message")
	}
}

func TestChat_JoinMarksUnreadAndDeliversThread(t *testing.T) {
	h := newHarness(t)
	toddTok := h.createUser(t, "todd")
	annaTok := h.createUser(t, "anna")

	todd := h.dialChat(t, toddTok, "anna")
	expectEvent(t, todd, "receiveMessageThread")
	sendChat(t, todd, "anna", "hello")
	expectEvent(t, todd, "newMessage")

	anna := h.dialChat(t, annaTok, "todd")
	ev := expectEvent(t, anna, "receiveMessageThread")
	var thread []model.Message
	if err := json.Unmarshal(ev.Body, &thread); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(thread) != 1 {
		t.Fatalf("expected thread of 1, got %d", len(thread))
	}
	if thread[0].Content != "hello" {
		t.Fatalf("expected hello, got %q", thread[0].Content)
	}

	msgs, err := h.store.Thread("anna", "todd")
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if msgs[0].ReadAt == nil {
		t.Fatalf("expected message marked read on join")
	}
}

func TestChat_RecipientInGroupGetsReadImmediately(t *testing.T) {
	h := newHarness(t)
	toddTok := h.createUser(t, "todd")
	annaTok := h.createUser(t, "anna")

	todd := h.dialChat(t, toddTok, "anna")
	expectEvent(t, todd, "receiveMessageThread")
	anna := h.dialChat(t, annaTok, "todd")
	expectEvent(t, anna, "receiveMessageThread")

	sendChat(t, todd, "anna", "you there?")

	ev := expectEvent(t, todd, "newMessage")
	var msg model.Message
	if err := json.Unmarshal(ev.Body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.ReadAt == nil {
		t.Fatalf("expected message read immediately, recipient has the conversation open")
	}

	ev = expectEvent(t, anna, "newMessage")
	if err := json.Unmarshal(ev.Body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Content != "you there?" {
		t.Fatalf("expected broadcast to recipient, got %q", msg.Content)
	}
}

func TestChat_OfflineRecipientStoredOnly(t *testing.T) {
	h := newHarness(t)
	toddTok := h.createUser(t, "todd")
	h.createUser(t, "lisa")

	todd := h.dialChat(t, toddTok, "lisa")
	expectEvent(t, todd, "receiveMessageThread")

	sendChat(t, todd, "lisa", "see you soon")

	ev := expectEvent(t, todd, "newMessage")
	var msg model.Message
	if err := json.Unmarshal(ev.Body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.ReadAt != nil || msg.DeliveredAt != nil {
		t.Fatalf("expected neither read nor delivered for offline recipient")
	}

	msgs, err := h.store.Thread("lisa", "todd")
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected durable fallback, got %d messages", len(msgs))
	}
}
