// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them instead
// of on messages. Generic codes mirror HTTP status semantics; the remaining
// ones name store rules that a status alone cannot convey (for example
// protected_default, which is a 409 like any other conflict).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "protected_default",
//	  "message": "default group is protected"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"

	// Store-specific:
	ErrCodeInvalidFormat      = "invalid_format"
	ErrCodeProtectedDefault   = "protected_default"
	ErrCodeCodeSpaceExhausted = "code_space_exhausted"
	ErrCodeStorageWriteFailed = "storage_write_failed"

	// AI exchange:
	ErrCodeExchangeInFlight = "exchange_in_flight"
	ErrCodeStaleExchange    = "stale_exchange"
	ErrCodeProviderFailed   = "provider_failed"
)
