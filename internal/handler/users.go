package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"heartlink-server/internal/store"
)

type UserHandler struct {
	Store *store.Store
}

func (h *UserHandler) List(c *gin.Context) {
	usernames, err := h.Store.Usernames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": usernames})
}
