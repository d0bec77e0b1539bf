package handler

import (
	"errors"
	"net/http"

	"interviewhub/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type issueTokenRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// IssueToken видає токен підключення для існуючого користувача.
func (h *Handler) IssueToken(c *gin.Context) {
	if !h.IssueEnabled {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "token issuance is disabled"})
		return
	}

	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	user, err := h.Hub.Storage.GetUserByID(c.Request.Context(), req.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up user"})
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "userId": user.ID, "role": user.Role})
}
