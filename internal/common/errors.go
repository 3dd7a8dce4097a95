// Package common defines shared constants and sentinel errors used across
// the VeilChat client core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Backend-confirmed failures.
	ErrAuthExpired   = errors.New("authentication expired")
	ErrInvalidCode   = errors.New("invalid code")
	ErrInvalidAccess = errors.New("conversation or message not accessible")

	// Local precondition failures (never reach the network).
	ErrMissingPrimaryContext = errors.New("missing primary code context")
	ErrCodeMismatch          = errors.New("code confirmation mismatch")
	ErrVerificationInFlight  = errors.New("verification already in flight")

	// Transport failures, distinguishable from server-rejected requests.
	ErrNetworkTimeout = errors.New("network timeout")
	ErrNetwork        = errors.New("network error")

	// Vault I/O failures.
	ErrStorage = errors.New("storage error")

	// Generic lifecycle errors.
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("operation not valid in current state")
)
