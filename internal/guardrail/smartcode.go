package guardrail

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// smartCodePattern is five dot-separated upper-case/numeric segments followed by a
// version marker, e.g. HERA.CRM.CUST.ENT.PROFILE.v1.
var smartCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*(\.[A-Z0-9_]+){4}\.[vV][0-9]+$`)

var ErrInvalidSmartCode = errors.New("invalid_smart_code")

// IsValidSmartCode reports whether code matches the smart code pattern.
func IsValidSmartCode(code string) bool {
	return smartCodePattern.MatchString(code)
}

// ValidateSmartCode returns ErrInvalidSmartCode (wrapped with the offending code)
// when code is malformed.
func ValidateSmartCode(code string) error {
	if IsValidSmartCode(code) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidSmartCode, code)
}

// SmartCodeVersion returns the numeric version suffix of a well-formed code.
func SmartCodeVersion(code string) (string, bool) {
	if !IsValidSmartCode(code) {
		return "", false
	}
	idx := strings.LastIndex(code, ".")
	return strings.ToLower(code[idx+1:]), true
}
