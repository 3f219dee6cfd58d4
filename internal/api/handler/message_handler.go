package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/service"
)

type MessageHandler struct {
	service MessageService
}

func NewMessageHandler(service MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// Send handles POST /v1/messages.
//
// @Summary      Send a team message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      messageRequest  true  "Recipient (default All) and text"
// @Success      201   {object}  domain.Message
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/messages [post]
func (h *MessageHandler) Send(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	msg, err := h.service.Send(c.Request().Context(), sess.Username, req.To, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// List handles GET /v1/messages.
//
// @Summary      Latest messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageListResponse
// @Router       /v1/messages [get]
func (h *MessageHandler) List(c echo.Context) error {
	msgs, err := h.service.Recent(c.Request().Context(), service.DefaultListLimit)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return c.JSON(http.StatusOK, messageListResponse{Messages: msgs})
}
