// Package validations holds the shared struct validator. Struct tags use the
// `binding` key, the same tag fiber request structs carry.
package validations

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var validatorOnce sync.Once
var validate *validator.Validate

func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

			if name == "-" {
				return ""
			}

			return name
		})
		_ = validate.RegisterValidation("mailbox", isMailbox)
	})
	return validate
}

// isMailbox accepts local@domain with both parts non-empty and nothing more.
// Deciding whether the address is deliverable is left to the identity
// provider.
func isMailbox(fl validator.FieldLevel) bool {
	parts := strings.Split(fl.Field().String(), "@")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

func ValidateStruct(obj interface{}) error {
	if kindOfData(obj) == reflect.Struct {
		if err := Validator().Struct(obj); err != nil {
			return err
		}
	}
	return nil
}

// Var validates a single value against a tag expression such as "email".
func Var(value interface{}, tag string) error {
	return Validator().Var(value, tag)
}

// FieldErrors flattens validator errors into field -> human message.
// It returns nil for errors that did not come from the validator.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		out[e.Field()] = errorToString(e)
	}
	return out
}

func errorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	default:
		return fmt.Sprintf("failed the %q check", e.Tag())
	}
}

func kindOfData(data interface{}) reflect.Kind {

	value := reflect.ValueOf(data)
	valueType := value.Kind()

	if valueType == reflect.Ptr {
		valueType = value.Elem().Kind()
	}
	return valueType
}
