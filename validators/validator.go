package validators

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps a shared go-playground validator. It satisfies echo.Validator
// and is also used to check event payloads.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks the struct tags of i
func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}
