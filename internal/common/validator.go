package common

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type GenericEchoValidator struct {
	Validator *validator.Validate
}

// NewGenericEchoValidator reports fields by their JSON name so error messages match
// what clients sent.
func NewGenericEchoValidator() *GenericEchoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return &GenericEchoValidator{Validator: v}
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	if gv.Validator == nil {
		return errors.New("validator is not initialised")
	}
	err := gv.Validator.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		problems := make([]string, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			problems = append(problems, describe(fe))
		}
		return echo.NewHTTPError(http.StatusBadRequest, "received invalid request body: "+strings.Join(problems, "; "))
	}
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "hexcolor":
		return fe.Field() + " must be a hex color like #fff or #ffffff"
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
