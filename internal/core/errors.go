package core

import "errors"

// Failure taxonomy shared by every layer. Services wrap these with
// context via fmt.Errorf("...: %w", err); callers match with errors.Is.
var (
	// ErrUnauthorized means the caller has no valid session or lacks the
	// required permission level. It deliberately carries no detail about
	// whether the target resource exists.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is only revealed to callers that already passed the
	// access check for the enclosing resource.
	ErrNotFound = errors.New("not found")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrLastOwner rejects any permission change that would leave a
	// budget with zero owner-level users.
	ErrLastOwner = errors.New("budget must retain at least one owner")
)

// ValidationError reports malformed input. It is a distinct type so the
// HTTP layer can map it to a 400 without string matching.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

// Invalid builds a ValidationError.
func Invalid(reason string) error {
	return ValidationError{Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
