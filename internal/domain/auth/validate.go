package auth

import (
	"fmt"
	"regexp"

	"github.com/medvault/medvault/internal/platform/api"
)

// cnicPattern is the national-id format: 5 digits, hyphen, 7 digits, hyphen,
// 1 digit.
var cnicPattern = regexp.MustCompile(`^\d{5}-\d{7}-\d$`)

// otpPattern requires exactly 6 digits.
var otpPattern = regexp.MustCompile(`^\d{6}$`)

// MinPasswordLength is enforced client-side before signup reaches the server.
const MinPasswordLength = 6

// ValidateCNIC reports whether s matches the national-id format.
func ValidateCNIC(s string) bool {
	return cnicPattern.MatchString(s)
}

// ValidateOTPCode reports whether s is exactly 6 digits.
func ValidateOTPCode(s string) bool {
	return otpPattern.MatchString(s)
}

// SignupForm carries the credential-form fields in sign-up mode.
type SignupForm struct {
	Name     string
	Email    string
	CNIC     string
	Password string
	Role     api.Role
}

// Validate checks the form locally. Any violation blocks submission with a
// specific message and no network call is made.
func (f SignupForm) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if f.Email == "" {
		return fmt.Errorf("email is required")
	}
	if f.CNIC == "" {
		return fmt.Errorf("national id is required")
	}
	if f.Password == "" {
		return fmt.Errorf("password is required")
	}
	if !ValidateCNIC(f.CNIC) {
		return fmt.Errorf("national id must match the format 12345-1234567-1")
	}
	if len(f.Password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
