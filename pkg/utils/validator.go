package utils

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// RegisterValidations adds the Kaizen enum tags to a validator instance:
// department, decision, answer and risklevel
func RegisterValidations(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"department": func(fl validator.FieldLevel) bool {
			return entity.Department(fl.Field().String()).IsValid()
		},
		"decision": func(fl validator.FieldLevel) bool {
			return entity.Decision(fl.Field().String()).IsValid()
		},
		"answer": func(fl validator.FieldLevel) bool {
			return entity.Answer(fl.Field().String()).IsValid()
		},
		"risklevel": func(fl validator.FieldLevel) bool {
			return entity.RiskLevel(fl.Field().String()).IsValid()
		},
	}

	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validation: %w", tag, err)
		}
	}
	return nil
}

// NewValidator returns a validator with the Kaizen tags registered
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// ValidateAmount validates a cost estimate in whole currency units
func ValidateAmount(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("amount must not be negative: %d", amount)
	}
	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
