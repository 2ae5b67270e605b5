package validation

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jomosautsem/lex/pkg/models"
)

// Respond writes the 400 validation body.
func Respond(c *fiber.Ctx, errs map[string][]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ValidationErrorResponse{
		Message: "Validation failed",
		Errors:  errs,
	})
}
