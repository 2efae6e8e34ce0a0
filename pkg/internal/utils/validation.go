package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a config struct and folds every failing field
// into a single error, naming fields by their mapstructure key so the
// message matches what the operator wrote in autoinc.yaml.
func ValidateStruct(s interface{}) error {
	if s == nil {
		return fmt.Errorf("invalid validation: input is nil")
	}

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("invalid validation: %v", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.Field()
		if field, ok := t.FieldByName(fe.StructField()); ok {
			if tag := field.Tag.Get("mapstructure"); tag != "" {
				name = tag
			}
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation (value %v)", name, fe.Tag(), redact(name, fe.Value())))
	}

	return errors.New(strings.Join(msgs, ", "))
}

func redact(name string, value interface{}) interface{} {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
		return "<redacted>"
	}
	return value
}
