package request

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/siteinstaller/internal/installer"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("tenant", func(fl validator.FieldLevel) bool {
		return installer.ValidateIdentifier(fl.Field().String()) == nil
	})
	validate.RegisterValidation("seedname", func(fl validator.FieldLevel) bool {
		return installer.ValidateSeedName(fl.Field().String()) == nil
	})
}

// Validate runs struct tag validation on v.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
