// Package http is the inbound HTTP surface: the REST and streaming chat
// endpoints, session delete, and health.
package http

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	"github.com/brandlens/brandlens/internal/domain/service"
	"github.com/brandlens/brandlens/pkg/errors"
)

// requestTimeout bounds one chat request end to end.
const requestTimeout = 180 * time.Second

// sessionIDPattern is the canonical lowercase v4 UUID form. Session IDs are
// server-issued; anything else is treated as absent.
var sessionIDPattern = regexp.MustCompile(
	`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// Pinger reports store reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"sessionId"`
}

// ChatHandler serves the conversational endpoints.
type ChatHandler struct {
	orchestrator *service.Orchestrator
	sessions     *service.SessionStore
	db           Pinger
	logger       *zap.Logger
}

func NewChatHandler(orchestrator *service.Orchestrator, sessions *service.SessionStore, db Pinger, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		sessions:     sessions,
		db:           db,
		logger:       logger.With(zap.String("component", "chat_handler")),
	}
}

// resolveSession loads the session named by the request or creates a new
// one. Fabricated or expired IDs silently get a fresh session.
func (h *ChatHandler) resolveSession(sessionID string) (string, []entity.Turn) {
	if sessionIDPattern.MatchString(sessionID) {
		if history, ok := h.sessions.Get(sessionID); ok {
			return sessionID, history
		}
	}
	return h.sessions.Create(), nil
}

// Chat is the REST variant: the full loop runs without an emitter and the
// result is returned as one JSON object.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	sessionID, history := h.resolveSession(req.SessionID)
	logger := h.logger.With(zap.String("session_id", sessionID))

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.orchestrator.Chat(ctx, history, req.Message, nil)
	if err != nil {
		logger.Error("Chat failed", zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": errors.Classify(err).Message})
		return
	}

	h.sessions.Set(sessionID, service.TrimHistory(result.History))
	c.JSON(http.StatusOK, gin.H{
		"response":  result.Answer,
		"sessionId": sessionID,
		"toolCalls": result.ToolCalls,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ChatStream is the streaming variant. The orchestration runs on a context
// detached from the request so a client disconnect stops the writes but not
// the work: the tool-call audit still lands in the session.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	sessionID, history := h.resolveSession(req.SessionID)
	logger := h.logger.With(zap.String("session_id", sessionID))

	ew, err := NewEventWriter(c.Writer, logger)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), requestTimeout)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	ew.StartHeartbeat(done)

	// Client disconnect flips the writer to no-op mode; the loop itself keeps
	// the detached context.
	go func() {
		select {
		case <-c.Request.Context().Done():
			ew.MarkClientGone()
			logger.Info("Client disconnected, continuing orchestration")
		case <-done:
		}
	}()

	ew.Send(entity.StreamEvent{Type: entity.EventConnected, SessionID: sessionID})

	result, err := h.orchestrator.Chat(ctx, history, req.Message, func(e entity.StreamEvent) {
		ew.Send(e)
	})
	if err != nil {
		logger.Error("Chat stream failed", zap.Error(err))
		ew.Send(entity.StreamEvent{Type: entity.EventError, Message: errors.Classify(err).Message})
		return
	}

	h.sessions.Set(sessionID, service.TrimHistory(result.History))
	ew.Send(entity.StreamEvent{Type: entity.EventSession, SessionID: sessionID})
}

// DeleteSession drops a session explicitly.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	id := c.Param("sessionId")
	if !sessionIDPattern.MatchString(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	h.sessions.Delete(id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Health reports liveness, session count, and store reachability.
func (h *ChatHandler) Health(c *gin.Context) {
	health, db := "ok", "ok"
	status := http.StatusOK
	if err := h.db.Ping(c.Request.Context()); err != nil {
		health, db = "degraded", "down"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   health,
		"sessions": h.sessions.Count(),
		"db":       db,
	})
}

func statusFor(err error) int {
	appErr := errors.Classify(err)
	switch appErr.Code {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	case errors.CodeCancelled:
		return http.StatusRequestTimeout
	case errors.CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
