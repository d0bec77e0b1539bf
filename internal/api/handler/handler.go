// Package handler exposes the gateway over HTTP: the websocket upgrade,
// token issuance, health probes and metrics.
package handler

import (
	"net/http"
	"time"

	"interviewhub/backend/internal/auth"
	"interviewhub/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler містить посилання на ChatHub та автентифікацію.
type Handler struct {
	Hub    *chathub.ManagerService
	Auth   *auth.Authenticator
	Tokens *auth.TokenManager
	// IssueEnabled turns on POST /auth/token.
	IssueEnabled bool

	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(hub *chathub.ManagerService, authn *auth.Authenticator, tokens *auth.TokenManager, allowedOrigins []string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Hub:    hub,
		Auth:   authn,
		Tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		log: log,
	}
}

// checkOrigin allows any origin when the list is empty.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Router builds the gin engine with every route mounted.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(h.requestLogger())

	r.GET("/ws", h.ServeWebSocket)
	r.POST("/auth/token", h.IssueToken)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
