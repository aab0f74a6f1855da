// Package rest hosts the web callback that receives the OAuth redirect.
// Everything interesting happens in the register usecase; the handler only
// maps query parameters in and errors out.
package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nerevar/corpsync/internal/domain"
	"github.com/nerevar/corpsync/internal/locale"
	"github.com/nerevar/corpsync/internal/usecase"
)

type Handler struct {
	register *usecase.RegisterUsecase
}

func NewHandler(register *usecase.RegisterUsecase) *Handler {
	return &Handler{register: register}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/callback", h.handleCallback)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
}

// handleCallback completes the handshake and maps each failure class to
// exactly one human-readable message. Raw error text never reaches the
// response.
func (h *Handler) handleCallback(c echo.Context) error {
	ctx := c.Request().Context()
	messages := locale.For(locale.EnUS)

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"result":  "FAIL",
			"message": "Request doesn't contain 'code' argument.",
		})
	}
	if state == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"result":  "FAIL",
			"message": "Request doesn't contain 'state' argument.",
		})
	}

	result, err := h.register.CompleteCallback(ctx, code, state)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"result":  "FAIL",
				"message": messages.AttemptExpired,
			})
		case errors.Is(err, domain.ErrAlreadyExists):
			return c.JSON(http.StatusConflict, echo.Map{
				"result":  "FAIL",
				"message": "Character has been registered already.",
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"result":  "FAIL",
				"message": messages.SomethingWentWrong,
			})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"result":    "REGISTERED",
		"character": result.CharacterName,
		"message":   result.Message,
	})
}
