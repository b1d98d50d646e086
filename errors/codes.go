package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Credential evidence errors, produced by the authentication stage.
const (
	// ErrCodeMalformedCredentials indicates an Authorization header that is present but unusable.
	ErrCodeMalformedCredentials ErrorCode = "MALFORMED_CREDENTIALS"
	// ErrCodeMissingCredentials indicates neither a header nor a token query parameter was sent.
	ErrCodeMissingCredentials ErrorCode = "MISSING_CREDENTIALS"
)

// Token verification errors
const (
	// ErrCodeInvalidSignature indicates the token signature does not verify against the public key.
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	// ErrCodeTokenExpired indicates the token expiry has elapsed.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	// ErrCodeIssuerAudienceMismatch indicates the iss or aud claim is not the expected constant.
	ErrCodeIssuerAudienceMismatch ErrorCode = "ISSUER_AUDIENCE_MISMATCH"
	// ErrCodeInvalidToken indicates the token could not be parsed at all.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Credential errors
const (
	// ErrCodeInvalidCredentials indicates the email/password pair does not match.
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// ErrCodeCorruptStoredHash indicates a stored password hash that cannot be parsed.
	ErrCodeCorruptStoredHash ErrorCode = "CORRUPT_STORED_HASH"
)

// Resource and input errors
const (
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
)

// Internal errors
const (
	// ErrCodeDatabaseError indicates the store is unreachable or returned an error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeInternal indicates any unclassified failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeMalformedCredentials:   http.StatusUnauthorized,
	ErrCodeMissingCredentials:     http.StatusUnauthorized,
	ErrCodeInvalidSignature:       http.StatusUnauthorized,
	ErrCodeTokenExpired:           http.StatusUnauthorized,
	ErrCodeIssuerAudienceMismatch: http.StatusUnauthorized,
	ErrCodeInvalidToken:           http.StatusUnauthorized,
	ErrCodeInvalidCredentials:     http.StatusUnauthorized,
	ErrCodeCorruptStoredHash:      http.StatusUnprocessableEntity,
	ErrCodeValidation:             http.StatusBadRequest,
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeAlreadyExists:          http.StatusConflict,
	ErrCodeForbidden:              http.StatusForbidden,
	ErrCodeDatabaseError:          http.StatusInternalServerError,
	ErrCodeInternal:               http.StatusInternalServerError,
}

// Codes returns every known error code.
func Codes() []ErrorCode {
	codes := make([]ErrorCode, 0, len(statusByCode))
	for code := range statusByCode {
		codes = append(codes, code)
	}
	return codes
}

// StatusFor returns the HTTP status for a code. ok is false for codes
// outside the known set; there is no fallback status.
func StatusFor(code ErrorCode) (status int, ok bool) {
	status, ok = statusByCode[code]
	return status, ok
}
