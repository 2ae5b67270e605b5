package profiles

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jomosautsem/lex/internal/auth"
	"github.com/jomosautsem/lex/pkg/models"
	"github.com/jomosautsem/lex/pkg/validation"
)

/* ================================ DTOs ================================= */

type CreateUserRequest struct {
	Name               string `json:"name" validate:"required,min=2,max=80"`
	Email              string `json:"email" validate:"required,email,max=120"`
	Phone              string `json:"phone" validate:"omitempty,phone"`
	Role               string `json:"role" validate:"required,role"`
	Password           string `json:"password" validate:"omitempty,min=6,max=72"`
	AssignedEmployeeID string `json:"assignedEmployeeId" validate:"omitempty,uuid"`
}

// UpdateUserRequest: absent fields are left unchanged.
type UpdateUserRequest struct {
	Name               *string `json:"name" validate:"omitempty,min=2,max=80"`
	Role               *string `json:"role" validate:"omitempty,role"`
	Phone              *string `json:"phone" validate:"omitempty,phone"`
	IsActive           *bool   `json:"isActive"`
	AssignedEmployeeID *string `json:"assignedEmployeeId" validate:"omitempty,uuid|len=0"`
}

func (r UpdateUserRequest) patch() Patch {
	p := Patch{Name: r.Name, Phone: r.Phone, IsActive: r.IsActive, AssignedEmployeeID: r.AssignedEmployeeID}
	if r.Role != nil {
		role := models.Role(*r.Role)
		p.Role = &role
	}
	return p
}

/* ============================== Handler ================================= */

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.User
// @Router       /api/users [get]
func (h *Handler) List(c *fiber.Ctx) error {
	users, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// @Summary      Create user
// @Description  Admin-only account creation; the admin's own session is untouched
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateUserRequest  true  "New user"
// @Success      201  {object}  models.User
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/users [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateUserRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	u, err := h.svc.AdminCreate(c.UserContext(), NewUser{
		Email:              in.Email,
		Name:               in.Name,
		Phone:              strings.TrimSpace(in.Phone),
		Role:               models.Role(in.Role),
		Password:           in.Password,
		AssignedEmployeeID: in.AssignedEmployeeID,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// @Summary      Update user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "User ID"
// @Param        payload  body  UpdateUserRequest  true  "Fields to change"
// @Success      200  {object}  models.User
// @Failure      403  {object}  models.ErrorResponse  "own role"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/users/{id} [patch]
func (h *Handler) Update(c *fiber.Ctx) error {
	var in UpdateUserRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	u, err := h.svc.Update(c.UserContext(), auth.MustUser(c).ID, c.Params("id"), in.patch())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(u)
}

// @Summary      Toggle active flag
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  models.User
// @Router       /api/users/{id}/toggle [post]
func (h *Handler) Toggle(c *fiber.Ctx) error {
	u, err := h.svc.Toggle(c.UserContext(), auth.MustUser(c).ID, c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(u)
}

// @Summary      Delete user profile
// @Tags         users
// @Security     BearerAuth
// @Param        id  path  string  true  "User ID"
// @Success      204
// @Router       /api/users/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), auth.MustUser(c).ID, c.Params("id")); err != nil {
		return mapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
	case errors.Is(err, ErrSelfRoleChange), errors.Is(err, ErrSelfDeactivate), errors.Is(err, ErrSelfDelete):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrEmailTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrNotEmployee):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNoUser):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return err
}
