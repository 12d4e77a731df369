package provider

import "errors"

var (
	ErrAccessDenied        = errors.New("provider: access denied by user")
	ErrMissingCode         = errors.New("provider: callback has no authorization code")
	ErrExchangeFailed      = errors.New("provider: token exchange failed")
	ErrProfileFetch        = errors.New("provider: failed to fetch profile")
	ErrMissingSubject      = errors.New("provider: profile has no subject id")
	ErrSubjectMismatch     = errors.New("provider: id token subject does not match profile")
	ErrRequestTokenExpired = errors.New("provider: request token unknown or expired")
	ErrInvalidConfig       = errors.New("provider: invalid configuration")
	ErrDuplicateAdapter    = errors.New("provider: adapter registered twice")
)
