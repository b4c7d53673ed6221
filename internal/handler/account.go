package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"heartlink-server/internal/auth"
	"heartlink-server/internal/store"
)

// Usernames feed into routing keys (conversation group names join two of
// them with "-"), so the charset must exclude the separator.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{2,30}$`)

type AccountHandler struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	username := strings.ToLower(strings.TrimSpace(body.Username))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}
	if !usernamePattern.MatchString(username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be 2-30 characters: letters, digits or underscore"})
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password"})
		return
	}

	user, err := h.Store.CreateUser(username, hash, time.Now().UnixMilli())
	if errors.Is(err, store.ErrUsernameTaken) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is taken"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	token, err := auth.CreateToken(user.Username, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "token": token})
}

func (h *AccountHandler) Login(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	username := strings.ToLower(strings.TrimSpace(body.Username))
	user, err := h.Store.UserByUsername(username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := auth.CreateToken(user.Username, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "token": token})
}
