// Package validation holds input predicates for account fields.
package validation

import (
	"net/mail"
	"regexp"
	"unicode"
)

// usernameRe mirrors the classic "letters, digits and @/./+/-/_" account
// name rule, capped at 150 characters.
var usernameRe = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

// ValidUsername reports whether username is an acceptable account name.
func ValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

// ValidEmail reports whether email parses as a bare RFC 5322 address.
func ValidEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// ValidPassword enforces a minimum of 8 characters with at least one letter
// and one digit.
func ValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
