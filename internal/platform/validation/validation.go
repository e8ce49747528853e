// Package validation plugs go-playground/validator into echo and turns its
// errors into ValidationError responses.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("hhmm", validateHHMM)
	v.RegisterValidation("isodate", validateISODate)
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	if err := cv.v.Struct(i); err != nil {
		return apperr.Validation("%s", FormatValidationError(err))
	}
	return nil
}

// validateHHMM accepts a 24-hour "HH:MM" or "HH:MM:SS" time of day.
func validateHHMM(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if _, err := time.Parse("15:04", s); err == nil {
		return true
	}
	_, err := time.Parse("15:04:05", s)
	return err == nil
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.DateOnly, fl.Field().String())
	return err == nil
}

// FormatValidationError renders validator errors as one readable sentence.
func FormatValidationError(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, describe(e))
	}
	return strings.Join(msgs, "; ")
}

func describe(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a UUID", field)
	case "hhmm":
		return fmt.Sprintf("%s must be a time of day as HH:MM", field)
	case "isodate":
		return fmt.Sprintf("%s must be a date as YYYY-MM-DD", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

// BindAndValidate binds the request into obj and validates it. Binding
// failures are reported as ValidationError rather than echo's generic 400.
func BindAndValidate(c echo.Context, obj interface{}) error {
	if err := c.Bind(obj); err != nil {
		msg := "invalid request payload"
		if he, ok := err.(*echo.HTTPError); ok {
			msg = fmt.Sprintf("invalid request payload: %v", he.Message)
		}
		return apperr.Validation("%s", msg)
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(obj)
}
