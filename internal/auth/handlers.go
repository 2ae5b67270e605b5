package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/internal/identity"
	"github.com/jomosautsem/lex/pkg/models"
	"github.com/jomosautsem/lex/pkg/validation"
)

/* ================================ DTOs ================================= */

// Request body for /signup
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Request body for /login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required"`
}

// Standard auth response. Token is absent when sign-up still awaits confirmation.
type AuthResponse struct {
	Token        string          `json:"token,omitempty"`
	ExpiresAt    *time.Time      `json:"expiresAt,omitempty"`
	User         *models.User    `json:"user,omitempty"`
	View         models.View     `json:"view,omitempty"`
	Capabilities []access.Action `json:"capabilities,omitempty"`
	Message      string          `json:"message,omitempty"`
}

/* ============================== Handler ================================= */

type Handler struct {
	svc *Service
	// onSignOut runs after a successful sign-out, e.g. to drop per-user state.
	onSignOut []func(userID string)
}

func NewHandler(svc *Service, onSignOut ...func(userID string)) *Handler {
	return &Handler{svc: svc, onSignOut: onSignOut}
}

func authResponse(r Result) AuthResponse {
	out := AuthResponse{Token: r.Session.Token}
	if !r.Session.ExpiresAt.IsZero() {
		exp := r.Session.ExpiresAt
		out.ExpiresAt = &exp
	}
	if r.User.ID != "" {
		u := r.User
		out.User = &u
		out.View = r.Landing
		out.Capabilities = access.Capabilities(u.Role)
	}
	return out
}

/* =============================== Signup ================================= */

// @Summary      Sign up
// @Description  Register a new client account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  SignupRequest  true  "Signup payload"
// @Success      201      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      409      {object}  models.ErrorResponse  "email already exists"
// @Router       /api/signup [post]
func (h *Handler) Signup(c *fiber.Ctx) error {
	var in SignupRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if in.Email == "" || in.Password == "" || in.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, ErrMissingFields.Error())
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	res, err := h.svc.SignUp(c.UserContext(), in.Email, in.Password, in.Name)
	switch {
	case errors.Is(err, ErrEmailTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrMissingFields):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return providerError(err)
	}

	out := authResponse(res)
	if res.Session.Token == "" {
		out.Message = SignUpPending
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

/* ================================ Login ================================= */

// @Summary      Login
// @Description  Authenticate and receive a session token plus the landing view
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  LoginRequest  true  "Login payload"
// @Success      200      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      401      {object}  models.ErrorResponse
// @Failure      403      {object}  models.ErrorResponse  "account deactivated"
// @Failure      404      {object}  models.ErrorResponse  "profile not found"
// @Router       /api/login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	res, err := h.svc.SignIn(c.UserContext(), in.Email, in.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAccountDeactivated):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrProfileNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case err != nil:
		return providerError(err)
	}
	return c.JSON(authResponse(res))
}

/* ================================ Logout ================================ */

// @Summary      Logout
// @Description  Revoke the current session
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Router       /api/logout [post]
func (h *Handler) Logout(c *fiber.Ctx) error {
	token := BearerToken(c)
	if token == "" {
		return c.SendStatus(fiber.StatusNoContent)
	}
	// Resolve the owner before revoking so per-user state can be dropped.
	sess, _, sessErr := h.svc.CurrentSession(c.UserContext(), token)
	if err := h.svc.SignOut(c.UserContext(), token); err != nil {
		return providerError(err)
	}
	if sessErr == nil {
		for _, fn := range h.onSignOut {
			fn(sess.UserID)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

/* ============================= Session / Me ============================= */

// @Summary      Current session
// @Description  Startup check: returns the signed-in user and landing view, or 401
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  AuthResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/session [get]
func (h *Handler) Session(c *fiber.Ctx) error {
	token := BearerToken(c)
	if token == "" {
		return fiber.ErrUnauthorized
	}
	sess, u, err := h.svc.CurrentSession(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return fiber.ErrUnauthorized
		}
		return providerError(err)
	}
	return c.JSON(authResponse(Result{Session: sess, User: u, Landing: access.LandingView(u.Role)}))
}

// @Summary      Get current user profile
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	return c.JSON(MustUser(c))
}

func providerError(err error) error {
	if errors.Is(err, identity.ErrUnavailable) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Servicio de autenticación no disponible")
	}
	return err
}
