package calendar

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jomosautsem/lex/pkg/models"
	"github.com/jomosautsem/lex/pkg/validation"
)

// ===== DTOs =====

type CreateEventRequest struct {
	Title       string `json:"title" validate:"required,max=160"`
	Date        string `json:"date" validate:"required,calendardate"`
	Time        string `json:"time" validate:"required,clock"`
	Type        string `json:"type" validate:"omitempty,eventtype"`
	CaseID      string `json:"caseId" validate:"omitempty,uuid"`
	Description string `json:"description" validate:"max=2000"`
}

type Handler struct {
	store Store
	now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// List Events godoc
// @Summary      Agenda procesal
// @Description  Events in date order, each with its urgency relative to today
// @Tags         calendar
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Entry
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/events [get]
func (h *Handler) List(c *fiber.Ctx) error {
	events, err := h.store.List(c.UserContext())
	if err != nil {
		return err
	}
	SortByDate(events)
	return c.JSON(Annotate(events, h.now()))
}

// Create Event godoc
// @Summary      Schedule an event
// @Tags         calendar
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateEventRequest  true  "Event payload"
// @Success      201  {object}  Entry
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      422  {object}  models.ErrorResponse  "linked case does not exist"
// @Router       /api/events [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateEventRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ev, err := h.store.Create(c.UserContext(), NewEvent{
		Title:       in.Title,
		Date:        in.Date,
		Time:        in.Time,
		Type:        models.EventType(in.Type),
		CaseID:      in.CaseID,
		Description: in.Description,
	})
	switch {
	case errors.Is(err, ErrUnknownCase):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrMissingField):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(Annotate([]models.LegalEvent{ev}, h.now())[0])
}
