package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/upb/wedding-platform/models"
)

// enumTag is a custom validator tag backed by a closed set of values.
type enumTag struct {
	valid   func(string) bool
	allowed string
}

var enumTags = map[string]enumTag{
	"user_role": {
		valid:   func(s string) bool { return models.UserRole(s).Valid() },
		allowed: "super_admin host guest",
	},
	"membership_role": {
		valid:   func(s string) bool { return models.MembershipRole(s).Valid() },
		allowed: "owner viewer",
	},
	"action": {
		valid:   func(s string) bool { return models.Action(s).Valid() },
		allowed: "create read update delete",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, enum := range enumTags {
		check := enum.valid
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// ValidationError carries a per-field message for every failed constraint.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateStruct runs the struct's validate tags and returns a
// *ValidationError when any field fails.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationError{Message: "Validation failed", Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	if enum, ok := enumTags[fe.Tag()]; ok {
		return fmt.Sprintf("%s must be one of: %s", name, enum.allowed)
	}

	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "uuid":
		return name + " must be a valid UUID"
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	}
	return fmt.Sprintf("%s validation failed on '%s' tag", name, fe.Tag())
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationFields returns the field messages of a *ValidationError, or nil.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
