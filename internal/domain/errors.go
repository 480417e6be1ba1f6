package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Handlers map these to HTTP
// statuses; anything not wrapping one of them is treated as internal.
var (
	// ErrValidation covers malformed or out-of-range input rejected
	// before touching storage.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is returned for a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated covers missing, invalid, or expired tokens.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInactiveAccount is returned when the referenced account exists
	// but has been deactivated.
	ErrInactiveAccount = errors.New("inactive user account")

	// ErrForbidden means the actor is authenticated but its role is not
	// in the allowed set for the operation.
	ErrForbidden = errors.New("forbidden")

	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("inventory item not found")

	ErrDuplicateSKU      = errors.New("sku already exists")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
)

// ValidationErrorf wraps ErrValidation with a human-readable message.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsConflict reports whether err is one of the uniqueness conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateSKU) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrDuplicateUsername)
}
