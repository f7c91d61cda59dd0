// Package validation wires go-playground/validator for request payloads and
// converts its failures into models.ValidationError.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// imageRef matches container image names with an optional tag, for example
// "ghcr.io/home-assistant/qemux86-64-homeassistant" or "org/app:{version}".
var imageRef = regexp.MustCompile(`^([a-zA-Z\-\.:\d{}]+/)*?([\-\w{}]+)/([\-\w{}]+)(:[\.\-\w{}]+)?$`)

// New returns a validator that reports fields by their JSON name and knows
// the image_ref tag.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("image_ref", func(fl validator.FieldLevel) bool {
		return imageRef.MatchString(fl.Field().String())
	})
	return v
}

// IsImageRef reports whether s is a valid container image reference.
func IsImageRef(s string) bool {
	return imageRef.MatchString(s)
}

// Struct validates s and returns the first violation as a
// *models.ValidationError.
func Struct(v *validator.Validate, s any) error {
	return Convert(v.Struct(s))
}

// Convert turns validator errors into *models.ValidationError. Other errors
// are returned unchanged.
func Convert(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return models.NewValidationError(fieldPath(fe), reason(fe))
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "hostname_rfc1123", "hostname_rfc1123|ip":
		return "must be a valid hostname or IP address"
	case "image_ref":
		return fmt.Sprintf("%q is not a valid image reference", fe.Value())
	default:
		return fmt.Sprintf("failed on the %q constraint", fe.Tag())
	}
}
