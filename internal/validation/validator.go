// Package validation wraps go-playground/validator with the project's
// custom tags and converts failures into validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "seopilot/internal/errors"
)

// postTypePattern is the allowed shape of a content category name
var postTypePattern = regexp.MustCompile(`^[a-z0-9_-]{1,20}$`)

// ValidPostType reports whether name is an acceptable content category name
func ValidPostType(name string) bool {
	return postTypePattern.MatchString(name)
}

// Validator validates structs by their validate tags
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the custom tags registered
func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("posttype", func(fl validator.FieldLevel) bool {
		return ValidPostType(fl.Field().String())
	})

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{v: v}
}

// Struct validates s and returns the first failure as a validation error
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apierrors.Validation(fe.Field(), formatValidationError(fe))
	}
	return apierrors.Validation("", err.Error())
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "eq":
		return fmt.Sprintf("%s must equal %s", field, param)
	case "posttype":
		return fmt.Sprintf("%s must match [a-z0-9_-]{1,20}", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
