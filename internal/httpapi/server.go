package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"newsassist/internal/domain"
	"newsassist/internal/usecase"
)

// Server exposes the thin HTTP surface over the assistant service. All
// failure handling lives below it: the search path always answers 200
// with a well-formed envelope.
type Server struct {
	echo      *echo.Echo
	assistant *usecase.Assistant
	logger    *slog.Logger
}

// NewServer wires routes onto a fresh echo instance.
func NewServer(assistant *usecase.Assistant, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, assistant: assistant, logger: logger}

	e.GET("/healthz", s.health)
	e.GET("/api/search", s.search)
	e.GET("/api/stats", s.stats)
	e.POST("/api/chat", s.chat)

	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) search(c echo.Context) error {
	section := c.QueryParam("section")
	query := c.QueryParam("q")

	resp := s.assistant.Search(c.Request().Context(), section, query)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.assistant.Stats())
}

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

type chatResponse struct {
	Message domain.ChatMessage `json:"message"`
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages must not be empty"})
	}

	if req.Stream {
		return s.chatStream(c, req.Messages)
	}

	reply, err := s.assistant.Reply(c.Request().Context(), req.Messages)
	if err != nil {
		s.logger.Error("chat reply", "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "chat backend unavailable"})
	}

	return c.JSON(http.StatusOK, chatResponse{
		Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: reply},
	})
}

// chatStream forwards sanitized views as server-sent events. Each event
// carries the full sanitized text so far; clients replace their rendering
// instead of appending.
func (s *Server) chatStream(c echo.Context, messages []domain.ChatMessage) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	err := s.assistant.StreamReply(c.Request().Context(), messages, func(view string) error {
		payload, err := json.Marshal(map[string]string{"content": view})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
			return err
		}
		res.Flush()
		return nil
	})
	if err != nil {
		// Headers are already on the wire; all we can do is log and close.
		s.logger.Error("chat stream", "error", err)
		return nil
	}

	_, _ = fmt.Fprint(res, "data: [DONE]\n\n")
	res.Flush()
	return nil
}
