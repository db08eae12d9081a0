package validate

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidEmail means the address does not look like a deliverable email.
var ErrInvalidEmail = errors.New("invalid email format")

// emailPattern accepts the common shapes of an address. It is deliberately
// loose; the directory stores contact details, it does not deliver mail.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Email validates a vendor contact address and returns it trimmed and
// lowercased. Length limits follow RFC 5321: 254 characters for the whole
// address, 64 for the part before the @.
func Email(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmpty
	}
	if len(email) > 254 {
		return "", ErrStringTooLong
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	if local, _, _ := strings.Cut(email, "@"); len(local) > 64 {
		return "", ErrStringTooLong
	}
	return email, nil
}
