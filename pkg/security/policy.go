package security

import (
	"strings"
	"unicode"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 20
	passwordSpecials  = "!@#$%^&*"
)

// PasswordViolations lists the password policy rules the candidate breaks.
// Passwords are 8-20 characters drawn from letters, digits and !@#$%^&*, with
// at least one upper case letter, one lower case letter, one digit and one
// special character.
func PasswordViolations(password string) []string {
	var (
		violations                               []string
		hasUpper, hasLower, hasDigit, hasSpecial bool
		invalid                                  bool
	)

	length := len([]rune(password))
	if length < MinPasswordLength || length > MaxPasswordLength {
		violations = append(violations, "must be 8-20 characters")
	}

	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			invalid = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		default:
			invalid = true
		}
	}

	if !hasUpper {
		violations = append(violations, "must contain an uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "must contain a lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain a digit")
	}
	if !hasSpecial {
		violations = append(violations, "must contain one of !@#$%^&*")
	}
	if invalid {
		violations = append(violations, "contains unsupported characters")
	}
	return violations
}

// ValidPassword reports whether password satisfies the policy.
func ValidPassword(password string) bool {
	return len(PasswordViolations(password)) == 0
}
