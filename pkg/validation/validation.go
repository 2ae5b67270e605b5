package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jomosautsem/lex/pkg/models"
)

var (
	v *validator.Validate

	// Phone: digits plus space, dash, dot, parentheses and a leading plus.
	rePhone = regexp.MustCompile(`^\+?[0-9 ().-]{7,20}$`)
	reClock = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func init() {
	v = validator.New()

	// Use JSON tag as the field name in error output
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("casestatus", func(fl validator.FieldLevel) bool {
		return models.CaseStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		return models.DocType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("eventtype", func(fl validator.FieldLevel) bool {
		return models.EventType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		val := strings.TrimSpace(fl.Field().String())
		if val == "" { // let omitempty handle empty
			return true
		}
		return rePhone.MatchString(val)
	})
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return reClock.MatchString(fl.Field().String())
	})
}

// Validate returns map[field][]messages, or nil when s is valid.
func Validate(s any) (map[string][]string, error) {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		out := make(map[string][]string)
		for _, e := range ve {
			field := e.Field() // already mapped from json tag

			switch e.Tag() {
			case "required":
				out[field] = append(out[field], "This field is required")

			case "email":
				out[field] = append(out[field], "Invalid email format")

			case "min":
				if e.Kind() == reflect.String {
					out[field] = append(out[field], fmt.Sprintf("Must be at least %s characters", e.Param()))
				} else {
					out[field] = append(out[field], fmt.Sprintf("Must be at least %s", e.Param()))
				}

			case "max":
				if e.Kind() == reflect.String {
					out[field] = append(out[field], fmt.Sprintf("Must be at most %s characters", e.Param()))
				} else {
					out[field] = append(out[field], fmt.Sprintf("Must be at most %s", e.Param()))
				}

			case "uuid", "uuid4":
				out[field] = append(out[field], "Invalid UUID format")

			case "role":
				out[field] = append(out[field], "Role must be ADMIN, EMPLOYEE or CLIENT")

			case "casestatus":
				out[field] = append(out[field], "Unknown case status")

			case "doctype":
				out[field] = append(out[field], "Unknown document type")

			case "eventtype":
				out[field] = append(out[field], "Unknown event type")

			case "phone":
				out[field] = append(out[field], "Invalid phone number")

			case "calendardate":
				out[field] = append(out[field], "Date must be YYYY-MM-DD")

			case "clock":
				out[field] = append(out[field], "Time must be HH:MM")

			default:
				// Fallback to original error text if we missed a tag
				out[field] = append(out[field], e.Error())
			}
		}
		return out, nil
	}
	return nil, nil
}
