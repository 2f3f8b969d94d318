package validation

import (
	"strings"
	"unicode/utf8"

	"ideaboard/internal/models"
)

// MinPasswordLen is the shortest password accepted at signup and reset.
const MinPasswordLen = 8

// NormalizeEmail trims and lowercases an address. Emails are unique
// case-insensitively, so every lookup and insert goes through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks the minimum password length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return models.NewFieldValidationError(FieldPasswordTooWeak, "Password must be at least 8 characters")
	}
	return nil
}

// ValidateSignup checks the fields of a new account.
func ValidateSignup(name, email, password string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return models.NewFieldValidationError(FieldInvalidName, "Name cannot be empty")
	case utf8.RuneCountInString(name) < 2:
		return models.NewFieldValidationError(FieldInvalidName, "Name must be at least 2 characters")
	case ContainsProfanity(name):
		return models.NewFieldValidationError(FieldProfanity, ProfanityMessage)
	case !strings.Contains(email, "@"):
		return models.NewFieldValidationError(FieldInvalidEmail, "Please enter a valid email address")
	}
	return ValidatePassword(password)
}
