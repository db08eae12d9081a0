// Package validate provides field-level validation for vendor records and
// other API inputs. Helpers return the cleaned (trimmed, normalized) value so
// callers can store exactly what was checked.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sentinel errors returned by String and the field helpers.
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// StringConstraints bundles the checks String applies. Zero-valued length
// limits are skipped.
type StringConstraints struct {
	MinLength      int
	MaxLength      int
	AllowedPattern *regexp.Regexp // when set, the whole string must match
	AllowEmpty     bool
	TrimSpace      bool
}

// String checks s against every constraint in order and returns the value
// that passed, trimmed if TrimSpace was set.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Lengths count characters, not bytes.
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: %d of %d required characters", ErrStringTooShort, length, constraints.MinLength)
	}

	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: %d characters over the limit of %d", ErrStringTooLong, length-constraints.MaxLength, constraints.MaxLength)
	}

	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: disallowed character present", ErrInvalidCharacters)
	}

	return s, nil
}

// phonePattern accepts digits plus the usual formatting characters, with an
// optional leading + and at least one digit somewhere.
var phonePattern = regexp.MustCompile(`^\+?[0-9 .\-()]*[0-9][0-9 .\-()]*$`)

// VendorName validates a vendor's display name:
// - 1-80 characters
// - surrounding whitespace trimmed
func VendorName(name string) (string, error) {
	return String(name, StringConstraints{
		MinLength:  1,
		MaxLength:  80,
		AllowEmpty: false,
		TrimSpace:  true,
	})
}

// City validates a city name:
// - optional
// - max 120 characters
func City(city string) (string, error) {
	return String(city, StringConstraints{
		MaxLength:  120,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// Notes validates free-form operator notes:
// - optional
// - max 2000 characters
func Notes(notes string) (string, error) {
	return String(notes, StringConstraints{
		MaxLength:  2000,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// Phone validates a contact phone number:
// - optional
// - 6-32 characters
// - digits with common formatting characters
func Phone(phone string) (string, error) {
	return String(phone, StringConstraints{
		MinLength:      6,
		MaxLength:      32,
		AllowedPattern: phonePattern,
		AllowEmpty:     true,
		TrimSpace:      true,
	})
}

// Tag validates a single vendor tag:
// - 1-40 characters
func Tag(tag string) (string, error) {
	return String(tag, StringConstraints{
		MinLength:  1,
		MaxLength:  40,
		AllowEmpty: false,
		TrimSpace:  true,
	})
}
