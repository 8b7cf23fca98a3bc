package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Policy defines a public type used by stampauth APIs.
//
// Policy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Policy struct {
	MinLength        int
	RequireUppercase bool
	RequireDigit     bool
	// SpecialChars is the accepted special-character set; empty disables the
	// special-character requirement.
	SpecialChars string
}

// ErrPolicy is an exported constant or variable used by the authentication engine.
var ErrPolicy = errors.New("password policy violation")

// Validate checks a candidate password against the policy. All violations are
// wrapped in [ErrPolicy] so callers can classify without parsing messages.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p Policy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("%w: at least %d characters required", ErrPolicy, p.MinLength)
	}

	if p.RequireUppercase && !strings.ContainsFunc(password, unicode.IsUpper) {
		return fmt.Errorf("%w: an uppercase letter is required", ErrPolicy)
	}

	if p.RequireDigit && !strings.ContainsFunc(password, unicode.IsDigit) {
		return fmt.Errorf("%w: a digit is required", ErrPolicy)
	}

	if p.SpecialChars != "" && !strings.ContainsAny(password, p.SpecialChars) {
		return fmt.Errorf("%w: a special character is required", ErrPolicy)
	}

	return nil
}
