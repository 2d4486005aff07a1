package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

// FieldError is a flattened validation failure suitable for API responses.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var messages = map[string]string{
	"required": "Field is required",
	"notblank": "Field must not be blank",
	"email":    "Invalid email format",
	"min":      "Value is too short",
	"max":      "Value is too long",
	"oneof":    "Value is not allowed",
	"pesel":    "Invalid PESEL number",
	"phone":    "Phone number must have at least 9 digits",
}

type validate struct {
	v *validator.Validate
}

// New returns a standalone validator reading the same "binding" tags gin uses.
func New() Validator {
	v := validator.New()
	v.SetTagName("binding")
	if err := Register(v); err != nil {
		panic(err)
	}
	return &validate{v: v}
}

func (v *validate) Validate(obj interface{}) error {
	return v.v.Struct(obj)
}

// Register installs the portal's custom tags and json field naming on v.
// The same engine instance is shared with gin's binding.
func Register(v *validator.Validate) error {
	custom := map[string]validator.Func{
		"notblank": func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		"pesel": func(fl validator.FieldLevel) bool {
			return ValidPESEL(fl.Field().String())
		},
		"phone": func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String())
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}

// Fields flattens validator errors into per-field messages. Errors that are
// not validation failures yield nil.
func Fields(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		msg := messages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, FieldError{Field: e.Field(), Message: msg})
	}
	return out
}

// ValidPhone requires at least nine digits; separators are ignored.
func ValidPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ' || r == '-' || r == '+' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 9
}
