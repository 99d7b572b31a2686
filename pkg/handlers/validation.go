package handlers

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field limits enforced before a request reaches a service.
const (
	minNameLength        = 2
	maxNameLength        = 50
	maxDescriptionLength = 500
	maxTitleLength       = 50
	minPasswordLength    = 8
)

// fieldError names the offending field for the error code.
type fieldError struct {
	code    string
	message string
}

func validateUserName(name string) *fieldError {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minNameLength || n > maxNameLength {
		return &fieldError{"invalid_name", "Name must be between 2 and 50 characters"}
	}
	return nil
}

func validateEmail(email string) *fieldError {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return &fieldError{"invalid_email", "Invalid email address"}
	}
	return nil
}

// validatePassword requires an upper and lower case letter, a digit and a
// symbol.
func validatePassword(password string) *fieldError {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &fieldError{"weak_password", "Password must be at least 8 characters"}
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return &fieldError{"weak_password", "Password must contain upper and lower case letters, a number and a special character"}
	}
	return nil
}

func validateWorkspace(name string, description *string) *fieldError {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minNameLength || n > maxNameLength {
		return &fieldError{"invalid_name", "Workspace name must be between 2 and 50 characters"}
	}
	if description != nil && utf8.RuneCountInString(*description) > maxDescriptionLength {
		return &fieldError{"invalid_description", "Description must be at most 500 characters"}
	}
	return nil
}

// validateTitle checks a project name or task title. required is false on
// partial updates, where an empty value leaves the field unchanged.
func validateTitle(title string, required bool) *fieldError {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if required && n == 0 {
		return &fieldError{"missing_title", "Title is required"}
	}
	if n > maxTitleLength {
		return &fieldError{"invalid_title", "Title must be at most 50 characters"}
	}
	return nil
}
