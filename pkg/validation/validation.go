// Package validation decodes JSON request bodies and validates them with
// go-playground/validator struct tags.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	val "github.com/go-playground/validator/v10"
)

// ErrInvalid marks request bodies that failed decoding or validation.
var ErrInvalid = errors.New("validation: invalid request")

var validate *val.Validate

var messages = map[string]string{
	"required": "{field} is required",
	"max":      "{field} must be at most {param} characters",
	"email":    "{field} must be a valid email address",
	"datetime": "{field} must match the format {param}",
	"oneof":    "{field} must be one of {param}",
	"e164ish":  "{field} must be a phone number",
}

func init() {
	validate = val.New(val.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("e164ish", phoneLike); err != nil {
		panic(err)
	}
}

// phoneLike accepts digits with the usual separators and an optional leading +.
func phoneLike(fl val.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '/' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 3
}

// Decode reads JSON from r into dst and validates the result.
func Decode[T any](r io.Reader, dst *T) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("%w: failed to decode request body: %v", ErrInvalid, err)
	}
	return Struct(dst)
}

// Struct validates dst against its struct tags.
func Struct[T any](dst *T) error {
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, message(err))
	}
	return nil
}

func message(err error) string {
	var valErrors val.ValidationErrors
	if errors.As(err, &valErrors) {
		for _, valErr := range valErrors {
			msg := messages[valErr.Tag()]
			if msg == "" {
				continue
			}
			msg = strings.ReplaceAll(msg, "{field}", valErr.Field())
			return strings.ReplaceAll(msg, "{param}", valErr.Param())
		}
		return valErrors.Error()
	}
	return err.Error()
}
