package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"heartlink-server/internal/middleware"
	"heartlink-server/internal/store"
)

// MessageHandler serves conversation history over plain HTTP. Read marking
// happens only on the realtime join path; fetching history here does not
// touch read state.
type MessageHandler struct {
	Store *store.Store
}

func (h *MessageHandler) Thread(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	other := strings.ToLower(c.Param("username"))
	if other == "" || other == username {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation partner"})
		return
	}

	msgs, err := h.Store.Thread(username, other)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	username, ok := middleware.UsernameFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	id := c.Param("id")
	err := h.Store.DeleteMessageFor(id, username)
	if errors.Is(err, store.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	if errors.Is(err, store.ErrNotParticipant) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your message"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
