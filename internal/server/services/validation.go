package services

import (
	"regexp"

	"github.com/dmitrijs2005/gophauth/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	minPasswordLength = 8
	minNameLength     = 3
	maxNameLength     = 50
)

var emailPattern = regexp.MustCompile(`(?i)^[\w.+-]+@([\w-]+\.)+[a-z]{2,}$`)

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Email is required"),
		validation.Match(emailPattern).Error("Invalid email"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Password is required"),
		validation.RuneLength(minPasswordLength, 0).Error("Password must be at least 8 characters"),
	}
}

// nameRules checks an optional display name; required adds the presence check.
func nameRules(required bool) []validation.Rule {
	rules := []validation.Rule{
		validation.RuneLength(minNameLength, 0).Error("Name must be at least 3 characters"),
		validation.RuneLength(0, maxNameLength).Error("Name must be at most 50 characters"),
	}
	if required {
		rules = append([]validation.Rule{validation.Required.Error("Name is required")}, rules...)
	}
	return rules
}

func ValidateEmail(email string) error {
	return validation.Validate(email, emailRules()...)
}

func ValidatePassword(password string) error {
	return validation.Validate(password, passwordRules()...)
}

func ValidateName(name string, required bool) error {
	return validation.Validate(name, nameRules(required)...)
}

// collect turns per-field results into a single validation error listing every
// failing field, or nil when all passed.
func collect(fields validation.Errors) error {
	err := fields.Filter()
	if err == nil {
		return nil
	}

	out := make(map[string]string, len(fields))
	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			out[field] = fieldErr.Error()
		}
	}
	return common.Validation("Validation error", out)
}
