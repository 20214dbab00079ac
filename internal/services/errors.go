// Package services defines the business logic of the companion store.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers with
// errors.Is.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Lookup and uniqueness errors.
var (
	// ErrNotFound indicates that a referenced id or code does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a group or preset name is already
	// used by another record.
	ErrDuplicateName = errors.New("name already in use")

	// ErrDuplicateFriend is returned when a live friend already exists for a
	// friend code.
	ErrDuplicateFriend = errors.New("friend already exists for this code")

	// ErrDuplicateCode is returned when adding a friend code that already
	// exists.
	ErrDuplicateCode = errors.New("friend code already exists")
)

// Rule violations.
var (
	// ErrProtectedDefault is returned on attempts to delete or rename the
	// default group.
	ErrProtectedDefault = errors.New("default group is protected")

	// ErrCodeSpaceExhausted is returned when code generation cannot find a
	// free code within the configured number of attempts.
	ErrCodeSpaceExhausted = errors.New("no free friend code found")

	// ErrInvalidCode is returned for codes outside [A-Z0-9]{6}.
	ErrInvalidCode = errors.New("friend code must be 6 characters from A-Z and 0-9")

	// ErrInvalidName is returned for blank names.
	ErrInvalidName = errors.New("name must not be empty")

	// ErrInvalidInput is returned for request values outside their domain,
	// such as negative token counts or an empty memory entry.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig is returned when an API configuration is unusable
	// (for example a non-positive maxTokens).
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Persistence and codec errors.
var (
	// ErrStorageWriteFailed indicates the storage medium rejected a write.
	// Prior state is left intact.
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrInvalidFormat is returned for malformed import documents. Nothing is
	// applied when it is returned.
	ErrInvalidFormat = errors.New("invalid document format")
)

// AI exchange protocol errors.
var (
	// ErrExchangeInFlight is returned when an AI exchange is already pending
	// for the chat.
	ErrExchangeInFlight = errors.New("an AI exchange is already in flight for this chat")

	// ErrStaleExchange is returned when an exchange finished after it was
	// abandoned; its result was discarded.
	ErrStaleExchange = errors.New("exchange was abandoned; result discarded")

	// ErrEmptyMessage is returned when a message has no text.
	ErrEmptyMessage = errors.New("message must not be empty")

	// ErrProviderFailed wraps an unsuccessful AI provider result.
	ErrProviderFailed = errors.New("AI provider call failed")
)
