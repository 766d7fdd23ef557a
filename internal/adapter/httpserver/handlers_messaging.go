package httpserver

import (
	"net/http"
	"time"

	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerMessagingRoutes(g *echo.Group) {
	g.GET("/conversations", s.handleListThreads)
	g.GET("/conversations/:peer/messages", s.handleListMessages)
	g.POST("/conversations/:peer/messages", s.handleSendMessage)
}

type pageRequest struct {
	Limit int `query:"limit"`
}

func (s *Server) handleListThreads(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req pageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	threads, err := s.messaging.Threads(c.Request().Context(), id.UserID, req.Limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]any{"threads": threads})
}

type listMessagesRequest struct {
	Before string `query:"before"` // RFC 3339; messages strictly older
	Limit  int    `query:"limit"`
}

func (s *Server) handleListMessages(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	peerID, err := uuidParam(c, "peer")
	if err != nil {
		return err
	}

	var req listMessagesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var before time.Time
	if req.Before != "" {
		if before, err = time.Parse(time.RFC3339Nano, req.Before); err != nil {
			return apperrors.ValidationError("before must be an RFC 3339 timestamp")
		}
	}

	msgs, err := s.messaging.Conversation(c.Request().Context(), id.UserID, peerID, before, req.Limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]any{"messages": msgs})
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

func (s *Server) handleSendMessage(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	peerID, err := uuidParam(c, "peer")
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := s.messaging.Send(c.Request().Context(), id.UserID, peerID, req.Body)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, msg)
}
