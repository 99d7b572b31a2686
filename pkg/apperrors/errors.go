// Package apperrors defines the error kinds shared by services and handlers.
// Handlers map kinds to HTTP status codes with errors.Is; the Message of an
// *Error is safe to show to the caller.
package apperrors

import "errors"

// Error kinds.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// Error is a kinded error carrying a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind so errors.Is(err, ErrNotFound) works.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound returns an ErrNotFound-kinded error.
func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// BadRequest returns an ErrBadRequest-kinded error.
func BadRequest(message string) error {
	return &Error{Kind: ErrBadRequest, Message: message}
}

// Unauthorized returns an ErrUnauthorized-kinded error.
func Unauthorized(message string) error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

// Internal returns an ErrInternal-kinded error. The message must be generic;
// the underlying cause is logged by the caller, never attached.
func Internal(message string) error {
	return &Error{Kind: ErrInternal, Message: message}
}

// Authorization failures. Both NotAMember and InsufficientPermission are
// ErrUnauthorized kinds; the HTTP layer may collapse them.
var (
	ErrNotAMember             = &Error{Kind: ErrUnauthorized, Message: "You are not a member of this workspace"}
	ErrInsufficientPermission = &Error{Kind: ErrUnauthorized, Message: "You do not have the necessary permissions to perform this action"}
	ErrNotWorkspaceOwner      = &Error{Kind: ErrUnauthorized, Message: "You are not authorized to delete this workspace"}
)

// Business-rule failures.
var (
	ErrInvalidRole       = &Error{Kind: ErrBadRequest, Message: "Invalid role"}
	ErrInvalidPermission = &Error{Kind: ErrBadRequest, Message: "Invalid permission"}
	ErrAlreadyMember     = &Error{Kind: ErrBadRequest, Message: "You are already a member of this workspace"}
	ErrMemberNotFound    = &Error{Kind: ErrBadRequest, Message: "Member not found in the workspace"}
	ErrEmailTaken        = &Error{Kind: ErrBadRequest, Message: "Email is already registered"}
	ErrInvalidCredential = &Error{Kind: ErrBadRequest, Message: "Invalid credentials"}
	ErrLastOwner         = &Error{Kind: ErrBadRequest, Message: "A workspace must keep at least one owner"}
	ErrCannotRemoveOwner = &Error{Kind: ErrBadRequest, Message: "The workspace owner cannot be removed"}
	ErrOwnerRoleLocked   = &Error{Kind: ErrBadRequest, Message: "The workspace owner's role cannot be changed"}
	ErrStaleMembership   = &Error{Kind: ErrConflict, Message: "Membership was modified by another request, reload and try again"}
)

// Message returns the caller-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
