package middleware

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateChatMessage validates a web chat message.
func ValidateChatMessage(content string) error {
	if len(content) > 4000 {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateIncidentID validates an incident ID.
func ValidateIncidentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid incident ID format")
	}
	return nil
}

// ValidateRegistrationNumber accepts Greek or Latin plates: letters, digits,
// spaces and hyphens, at most 16 characters.
func ValidateRegistrationNumber(reg string) error {
	if reg == "" {
		return errors.New("registration number cannot be empty")
	}
	if utf8.RuneCountInString(reg) > 16 {
		return errors.New("registration number exceeds maximum length")
	}
	for _, r := range reg {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '-' {
			return errors.New("registration number contains invalid characters")
		}
	}
	return nil
}

// ValidateSessionID validates a dialogue session identifier.
func ValidateSessionID(id string) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if len(id) > 512 {
		return errors.New("session ID exceeds maximum length")
	}
	return nil
}
