package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	contractx "github.com/marcovalle/ventia/assistant/contract"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

// Chat handles one conversational turn.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "request body must be JSON"})
	}

	result, err := h.assistant.HandleTurn(c.Request().Context(), req.SessionID, req.UserInput)
	if err != nil {
		return c.JSON(statusFor(err), map[string]string{"error": err.Error()})
	}

	switch {
	case result.Ended:
		return c.JSON(http.StatusOK, map[string]string{"message": result.Reply})
	case result.Empty:
		return c.JSON(http.StatusOK, map[string]string{
			"assistant": "",
			"info":      "assistant returned no text",
		})
	default:
		return c.JSON(http.StatusOK, map[string]string{"assistant": result.Reply})
	}
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrModelInvoke):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
