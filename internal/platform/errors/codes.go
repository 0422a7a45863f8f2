// Package errors provides structured error handling for the ledger services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeInvalidRequestBody        Code = "INVALID_REQUEST_BODY"
	CodeGameInvalidCurrency       Code = "GAME_INVALID_CURRENCY"
	CodeGameInvalidInitialBalance Code = "GAME_INVALID_INITIAL_BALANCE"
	CodeGameInvalidCrossBonus     Code = "GAME_INVALID_CROSS_START_BONUS"
	CodeGameInvalidPlayerCount    Code = "GAME_INVALID_PLAYER_COUNT"
	CodeGameEmptyPlayerName       Code = "GAME_EMPTY_PLAYER_NAME"
	CodeGameInvalidAmount         Code = "GAME_INVALID_AMOUNT"
	CodeGameInsufficientBalance   Code = "GAME_INSUFFICIENT_BALANCE"
	CodeAccessInvalidCode         Code = "ACCESS_INVALID_CODE"

	// Allocation errors
	CodeAllocationExhausted Code = "ALLOCATION_EXHAUSTED"
	CodePartialWrite        Code = "PARTIAL_WRITE"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// Lifecycle errors
	CodeSessionExpired Code = "SESSION_EXPIRED"
)

// HTTPStatus maps domain codes to HTTP status codes for the transport layer.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidRequestBody,
		CodeGameInvalidCurrency,
		CodeGameInvalidInitialBalance,
		CodeGameInvalidCrossBonus,
		CodeGameInvalidPlayerCount,
		CodeGameEmptyPlayerName,
		CodeGameInvalidAmount,
		CodeGameInsufficientBalance,
		CodeAccessInvalidCode:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSessionExpired:
		return http.StatusGone
	case CodeAllocationExhausted:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether an operation failing with this code is safe to
// retry from scratch. Partial writes are not retryable: some paths may have
// been committed and need reconciliation first.
func (c Code) Retryable() bool {
	return c == CodeStoreUnavailable
}
