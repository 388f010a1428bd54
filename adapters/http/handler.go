package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xak1234/Huntley/domain"
	"github.com/xak1234/Huntley/utils/log"
)

// ChatService is the part of usecase.ChatService the HTTP layer needs.
type ChatService interface {
	HandleMessage(ctx context.Context, text string) (string, error)
	History(ctx context.Context) (domain.Transcript, error)
}

type ChatHandler struct {
	chatService ChatService
	tagger      domain.Tagger
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewChatHandler(chatService ChatService, tagger domain.Tagger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		tagger:      tagger,
	}
}

// RequestContext copies the echo request id into the request context so
// downstream loggers carry it.
func RequestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		if id == "" {
			id = c.Request().Header.Get(echo.HeaderXRequestID)
		}
		if id != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(log.ContextWithRequestID(req.Context(), id)))
		}
		return next(c)
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	}

	ctx := c.Request().Context()
	reply, err := h.chatService.HandleMessage(ctx, req.Message)
	if err != nil {
		if errors.Is(err, domain.ErrMessageRequired) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Message required"})
		}
		log.WithCtx(ctx).Error("Error generating response", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to generate response",
			Details: failureDetails(err),
		})
	}

	return c.JSON(http.StatusOK, ChatResponse{Response: reply})
}

// History handles GET /api/chat-history. The body is tagged with a strong
// ETag so polling clients can revalidate cheaply.
func (h *ChatHandler) History(c echo.Context) error {
	ctx := c.Request().Context()
	transcript, err := h.chatService.History(ctx)
	if err != nil {
		log.WithCtx(ctx).Error("Error loading history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load history"})
	}
	if transcript.Messages == nil {
		transcript.Messages = []domain.Turn{}
	}

	body, err := json.Marshal(transcript)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load history"})
	}

	etag := h.tagger.ETag(body)
	c.Response().Header().Set("ETag", etag)
	if h.tagger.Matches(c.Request().Header.Get("If-None-Match"), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSONBlob(http.StatusOK, body)
}

// HealthCheck handles GET /health
func (h *ChatHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Server is running",
	})
}

func failureDetails(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "provider timeout"
	case errors.Is(err, domain.ErrNoProviders):
		return "no provider configured"
	case errors.Is(err, domain.ErrServiceStopped):
		return "server shutting down"
	default:
		return "all providers failed"
	}
}
