package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/labstack/echo/v4"

	"github.com/KaramelBytes/datachat-cli/internal/chat"
	"github.com/KaramelBytes/datachat-cli/internal/history"
)

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Welcome   string `json:"welcome"`
}

type postMessageRequest struct {
	Content string `json:"content"`
}

type repliesResponse struct {
	Replies []chat.Reply `json:"replies"`
}

type historyResponse struct {
	Turns []history.Turn `json:"turns"`
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// CreateSession starts a new conversation.
// POST /v1/sessions
func (s *Server) CreateSession(c echo.Context) error {
	id := uuid.NewString()
	store, err := s.cfg.Opener.Open(c.Request().Context(), id)
	if err != nil {
		s.log.Error("failed to open session store", "session", id, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to open session")
	}
	s.sessions.Set(id, chat.NewSession(id, store), ttlcache.DefaultTTL)
	return c.JSON(http.StatusCreated, createSessionResponse{SessionID: id, Welcome: s.cfg.Welcome})
}

// PostMessage processes one user message.
// POST /v1/sessions/:session_id/messages
func (s *Server) PostMessage(c echo.Context) error {
	sess, ok := s.session(c)
	if !ok {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}
	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return errorJSON(c, http.StatusBadRequest, "content is required")
	}
	replies := s.cfg.Dispatcher.Handle(c.Request().Context(), sess, req.Content)
	if replies == nil {
		replies = []chat.Reply{}
	}
	return c.JSON(http.StatusOK, repliesResponse{Replies: replies})
}

// GetHistory returns the stored turns.
// GET /v1/sessions/:session_id/history
func (s *Server) GetHistory(c echo.Context) error {
	sess, ok := s.session(c)
	if !ok {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}
	turns := sess.Store.Turns()
	if turns == nil {
		turns = []history.Turn{}
	}
	return c.JSON(http.StatusOK, historyResponse{Turns: turns})
}

// DeleteHistory clears the conversation through the dispatcher's reserved command.
// DELETE /v1/sessions/:session_id/history
func (s *Server) DeleteHistory(c echo.Context) error {
	sess, ok := s.session(c)
	if !ok {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}
	replies := s.cfg.Dispatcher.Handle(c.Request().Context(), sess, chat.CommandDeleteHistory.String())
	return c.JSON(http.StatusOK, repliesResponse{Replies: replies})
}

// Health returns health status.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "healthy",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) session(c echo.Context) (*chat.Session, bool) {
	item := s.sessions.Get(c.Param("session_id"))
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}
