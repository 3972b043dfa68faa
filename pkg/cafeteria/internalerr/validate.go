package internalerr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidationError reports the first struct field that failed validation.
// It unwraps to ErrInvalidInput.
type ValidationError struct {
	Field string
	Tag   string
	Param string
	Value interface{}
}

func (e *ValidationError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s (got %v)", e.Field, e.Param, e.Value)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s (got %v)", e.Field, e.Param, e.Value)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got %v)", e.Field, e.Param, e.Value)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %v)", e.Field, e.Param, e.Value)
	default:
		return fmt.Sprintf("%s failed %q validation", e.Field, e.Tag)
	}
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// ValidateStruct runs the `validate` struct tags on s.
func ValidateStruct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field: fe.Namespace(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// Invalid builds an ErrInvalidInput error with a formatted reason.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
