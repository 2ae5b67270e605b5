package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/internal/identity"
	"github.com/jomosautsem/lex/pkg/models"
)

const (
	localUser  = "user"
	localToken = "token"
)

/* ============================== Middleware ============================== */

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	h := c.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// RequireAuth resolves the bearer token to an active profile and stores it in locals.
func RequireAuth(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return fiber.ErrUnauthorized
		}
		_, u, err := svc.CurrentSession(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, identity.ErrNoSession) {
				return fiber.ErrUnauthorized
			}
			return err
		}
		c.Locals(localUser, &u)
		c.Locals(localToken, token)
		return c.Next()
	}
}

// WithUser injects an already resolved user, skipping token lookup.
// Handler tests mount it in place of RequireAuth.
func WithUser(u models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localUser, &u)
		return c.Next()
	}
}

// MustUser reads the authenticated user from context or panics (programming error).
func MustUser(c *fiber.Ctx) *models.User {
	if u, ok := c.Locals(localUser).(*models.User); ok && u != nil {
		return u
	}
	panic(errors.New("user not in context"))
}

// CurrentUser is MustUser for routes that may run unauthenticated.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

// RequireAction checks the access policy for the authenticated user's role.
func RequireAction(action access.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !access.Allowed(MustUser(c).Role, action) {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}

/* =========================== Error Formatting =========================== */

// httpCodeToString converts an HTTP status code to a short, stable string.
func httpCodeToString(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case fiber.StatusBadGateway:
		return "BAD_GATEWAY"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// ErrorHandler is the global Fiber error handler; every error leaves as models.ErrorResponse.
// Errors that are not *fiber.Error never leak their text.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := fiber.ErrInternalServerError.Message

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if strings.TrimSpace(fe.Message) != "" {
			msg = fe.Message
		} else {
			msg = fiber.NewError(code).Message
		}
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Code:    httpCodeToString(code),
		Error:   true,
		Message: msg,
	})
}
