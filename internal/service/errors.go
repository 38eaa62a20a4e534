package service

import (
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/pkg/validator"
)

var (
	ErrUserNotFound         = domain.KindError(domain.ErrNotFound, "user not found")
	ErrConversationNotFound = domain.KindError(domain.ErrNotFound, "conversation not found")
	ErrListingNotFound      = domain.KindError(domain.ErrNotFound, "listing not found")
	ErrNotParticipant       = domain.KindError(domain.ErrForbidden, "you are not a participant of this conversation")
	ErrNotListingOwner      = domain.KindError(domain.ErrForbidden, "only the seller can delete this listing")
	ErrBlocked              = domain.KindError(domain.ErrBlocked, "messaging is blocked between these users")
	ErrEmailTaken           = domain.KindError(domain.ErrConflict, "email already taken")
	ErrUsernameTaken        = domain.KindError(domain.ErrConflict, "username already taken")
	ErrInvalidCreds         = domain.KindError(domain.ErrUnauthorized, "invalid email or password")
	ErrInvalidToken         = domain.KindError(domain.ErrUnauthorized, "invalid or expired token")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrValidation
}

// invalid returns a *ValidationError for errs, or nil when errs is empty.
func invalid(errs validator.ValidationErrors) error {
	if !errs.HasErrors() {
		return nil
	}
	return &ValidationError{Fields: errs}
}

func invalidField(field, message string) error {
	return &ValidationError{Fields: validator.ValidationErrors{field: message}}
}
