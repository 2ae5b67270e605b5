package cases

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/internal/auth"
	"github.com/jomosautsem/lex/internal/storage"
	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/models"
	"github.com/jomosautsem/lex/pkg/validation"
)

// ===== DTOs =====

type CreateCaseRequest struct {
	Title       string `json:"title" validate:"required,max=120"`
	ClientID    string `json:"clientId" validate:"required,uuid"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"omitempty,casestatus"`
}

type UpdateCaseRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=120"`
	ClientID    *string `json:"clientId" validate:"omitempty,uuid"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      *string `json:"status" validate:"omitempty,casestatus"`
}

func (r UpdateCaseRequest) patch() Patch {
	p := Patch{Title: r.Title, ClientID: r.ClientID, Description: r.Description}
	if r.Status != nil {
		st := models.CaseStatus(*r.Status)
		p.Status = &st
	}
	return p
}

type Handler struct {
	store Store
	blobs storage.BlobStore
	rep   logger.Reporter
}

func NewHandler(store Store, blobs storage.BlobStore, rep logger.Reporter) *Handler {
	if rep == nil {
		rep = logger.Nop{}
	}
	return &Handler{store: store, blobs: blobs, rep: rep}
}

// List Cases godoc
// @Summary      List cases
// @Description  Staff see every case; clients only their own. Newest first, documents in upload order
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   models.Case
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/cases [get]
func (h *Handler) List(c *fiber.Ctx) error {
	all, err := h.store.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(access.VisibleCases(auth.MustUser(c), all))
}

// Get Case godoc
// @Summary      Case detail
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  models.Case
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/cases/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	cs, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	if !access.CanSeeCase(auth.MustUser(c), cs) {
		return mapError(models.ErrNotFound)
	}
	return c.JSON(cs)
}

// Create Case godoc
// @Summary      Create case
// @Description  Staff open a case for a client; status defaults to Abierto
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateCaseRequest  true  "Case payload"
// @Success      201  {object}  models.Case
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      422  {object}  models.ErrorResponse  "client id is not a client"
// @Router       /api/cases [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cs, err := h.store.Create(c.UserContext(), auth.MustUser(c).ID, NewCase{
		Title:       in.Title,
		ClientID:    in.ClientID,
		Description: in.Description,
		Status:      models.CaseStatus(in.Status),
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(cs)
}

// Update Case godoc
// @Summary      Update case
// @Description  Partial update; status changes are recorded in the case history
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "case id (uuid)"
// @Param        payload  body  UpdateCaseRequest  true  "Fields to change"
// @Success      200  {object}  models.Case
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/cases/{id} [patch]
func (h *Handler) Update(c *fiber.Ctx) error {
	var in UpdateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	cs, err := h.store.Update(c.UserContext(), auth.MustUser(c).ID, c.Params("id"), in.patch())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(cs)
}

// Delete Case godoc
// @Summary      Delete case
// @Description  Removes the case and its documents; blob cleanup is best-effort
// @Tags         cases
// @Security     BearerAuth
// @Param        id   path string true "case id (uuid)"
// @Success      204
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/cases/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	keys, err := h.store.Delete(c.UserContext(), auth.MustUser(c).ID, id)
	if err != nil {
		return mapError(err)
	}
	if h.blobs != nil && len(keys) > 0 {
		if err := h.blobs.BulkDelete(c.UserContext(), keys); err != nil {
			h.rep.Report("cases.delete_blobs", err, zap.String("case_id", id), zap.Strings("keys", keys))
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Expediente no encontrado")
	case errors.Is(err, ErrNotAClient), errors.Is(err, ErrBadStatus):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return err
}
