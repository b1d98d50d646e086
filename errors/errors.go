package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// HTTPStatus is the HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error. It is logged but never written to clients.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError whose status is derived from the code. A code
// outside the known set becomes INTERNAL_ERROR, with the unknown code
// recorded as the cause.
func New(code ErrorCode, message string) *AppError {
	status, ok := StatusFor(code)
	if !ok {
		return Internal(fmt.Errorf("unknown error code %q: %s", code, message))
	}
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// --- Credential evidence ---

// MalformedCredentials is returned when the Authorization header is present
// but does not carry a usable Bearer token.
func MalformedCredentials(reason string) *AppError {
	if reason == "" {
		reason = "Malformed Authorization header."
	}
	return New(ErrCodeMalformedCredentials, reason)
}

// MissingCredentials is returned when no token was supplied at all.
func MissingCredentials() *AppError {
	return New(ErrCodeMissingCredentials, "Authentication required.")
}

// --- Token verification ---

// InvalidSignature creates an error for a token that fails signature checks.
func InvalidSignature(cause error) *AppError {
	return New(ErrCodeInvalidSignature, "Invalid token signature.").WithCause(cause)
}

// TokenExpired creates an error for an expired authentication token.
func TokenExpired(cause error) *AppError {
	return New(ErrCodeTokenExpired, "Your session has expired. Please sign in again.").WithCause(cause)
}

// IssuerAudienceMismatch creates an error for a token minted for another issuer or audience.
func IssuerAudienceMismatch(cause error) *AppError {
	return New(ErrCodeIssuerAudienceMismatch, "Token issuer or audience mismatch.").WithCause(cause)
}

// InvalidToken creates an error for a token that cannot be parsed.
func InvalidToken(cause error) *AppError {
	return New(ErrCodeInvalidToken, "Invalid authentication token.").WithCause(cause)
}

// --- Credentials ---

// InvalidCredentials creates an error for a non-matching email/password pair.
// Unknown emails and wrong passwords share this error.
func InvalidCredentials() *AppError {
	return New(ErrCodeInvalidCredentials, "Invalid email or password.")
}

// CorruptStoredHash creates an error for a stored password hash that cannot be parsed.
func CorruptStoredHash(cause error) *AppError {
	return New(ErrCodeCorruptStoredHash, "Stored credentials are unreadable.").WithCause(cause)
}

// --- Resources ---

// Validation creates a new AppError for invalid request input.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	err := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource)).
		WithDetail("resource", resource)
	if id != "" {
		err.WithDetail("id", id)
	}
	return err
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("A %s with these details already exists.", resource)).
		WithDetail("resource", resource)
}

// Forbidden creates a new AppError for forbidden access.
func Forbidden(reason string) *AppError {
	if reason == "" {
		reason = "You don't have permission to perform this action."
	}
	return New(ErrCodeForbidden, reason)
}

// --- Internal ---

// DatabaseError creates a new AppError for a store failure.
func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred. Please try again.").WithCause(cause)
}

// Internal creates a new AppError for an unclassified failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}
