package auth

import "errors"

// Sentinel verification failures. Handlers translate these into the
// machine-readable codes returned to clients via ErrorCode.
var (
	ErrMissingToken       = errors.New("authorization token missing")
	ErrTokenExpired       = errors.New("token has expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingKeyID       = errors.New("missing key id in token header")
	ErrInvalidKeyID       = errors.New("invalid key id")
	ErrKeySetUnavailable  = errors.New("key set unavailable")
	ErrSessionRejected    = errors.New("session token rejected")
	ErrVerificationFailed = errors.New("token verification failed")
)

// Machine-readable error codes surfaced in API responses.
const (
	CodeUnauthenticated         = "UNAUTHENTICATED"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeMissingKeyID            = "MISSING_KEY_ID"
	CodeInvalidKeyID            = "INVALID_KEY_ID"
	CodeJWKSFetchFailed         = "JWKS_FETCH_FAILED"
	CodeTokenVerificationFailed = "TOKEN_VERIFICATION_FAILED"
)

// ErrorCode maps a verification failure to its response code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return CodeUnauthenticated
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrMissingKeyID):
		return CodeMissingKeyID
	case errors.Is(err, ErrInvalidKeyID):
		return CodeInvalidKeyID
	case errors.Is(err, ErrKeySetUnavailable):
		return CodeJWKSFetchFailed
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSessionRejected):
		return CodeInvalidToken
	default:
		return CodeTokenVerificationFailed
	}
}

// IsInfrastructureFailure reports whether the failure stems from an
// unreachable collaborator rather than a bad credential. These surface as
// 5xx instead of 401.
func IsInfrastructureFailure(err error) bool {
	return errors.Is(err, ErrKeySetUnavailable)
}
