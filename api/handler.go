// Package api exposes the assistant over HTTP.
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	orchestratorx "github.com/marcovalle/ventia/assistant/orchestrator"
)

// Assistant is the orchestration entry point the transport depends on.
type Assistant interface {
	HandleTurn(ctx context.Context, sessionID, text string) (orchestratorx.Result, error)
}

type Handler struct {
	assistant Assistant
}

func NewHandler(assistant Assistant) *Handler {
	return &Handler{assistant: assistant}
}

// NewServer builds the echo server with all routes registered.
func NewServer(assistant Assistant) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	h := NewHandler(assistant)
	e.POST("/api/chat", h.Chat)
	e.GET("/healthz", h.Health)

	return e
}
