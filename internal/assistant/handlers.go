package assistant

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jomosautsem/lex/internal/auth"
	"github.com/jomosautsem/lex/pkg/validation"
)

type SendRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	Context string `json:"context" validate:"max=8000"`
}

type SendResponse struct {
	Reply Turn   `json:"reply"`
	Turns []Turn `json:"turns"`
}

type Handler struct {
	reg *Registry
}

func NewHandler(reg *Registry) *Handler { return &Handler{reg: reg} }

// Transcript godoc
// @Summary      Current assistant conversation
// @Tags         assistant
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Turn
// @Router       /api/assistant [get]
func (h *Handler) Transcript(c *fiber.Ctx) error {
	return c.JSON(h.reg.Turns(auth.MustUser(c).ID))
}

// Send godoc
// @Summary      Ask LexAI
// @Description  Only the latest message is sent; the reply is appended to the conversation
// @Tags         assistant
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  SendRequest  true  "Message"
// @Success      200  {object}  SendResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "a reply is still pending"
// @Failure      429  {object}  models.ErrorResponse
// @Router       /api/assistant [post]
func (h *Handler) Send(c *fiber.Ctx) error {
	var in SendRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	t := h.reg.For(auth.MustUser(c).ID)
	reply, err := t.Send(c.UserContext(), in.Message, in.Context)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(SendResponse{Reply: reply, Turns: t.Turns()})
}

// Reset godoc
// @Summary      Forget the conversation
// @Tags         assistant
// @Security     BearerAuth
// @Success      204
// @Router       /api/assistant [delete]
func (h *Handler) Reset(c *fiber.Ctx) error {
	h.reg.Drop(auth.MustUser(c).ID)
	return c.SendStatus(fiber.StatusNoContent)
}
