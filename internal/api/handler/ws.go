package handler

import (
	"errors"
	"net/http"

	"interviewhub/backend/internal/auth"
	"interviewhub/backend/internal/chathub"
	"interviewhub/backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServeWebSocket автентифікує запит і лише потім оновлює з'єднання до
// WebSocket: неавтентифіковане з'єднання не отримує жодних обробників.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := h.Auth.Authenticate(ctx, auth.TokenFromRequest(c.Request))
	if err != nil {
		h.log.Debug("connection refused", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.Hub.Admit(ctx, id.UserID); err != nil {
		if errors.Is(err, chathub.ErrRateLimited) {
			metrics.RejectedEvents.WithLabelValues(chathub.CodeRateLimited).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(conn, h.Hub, id)
	h.Hub.Register(client)
	client.Run()
}
