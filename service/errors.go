package service

import "errors"

// Failure taxonomy for economy operations. Callers branch with errors.Is;
// the HTTP layer maps each category to a status code.
var (
	// ErrValidation indicates bad input shape or range (caller error)
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a missing user, item, raffle or game
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance indicates a debit that would drive a balance negative
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOutOfStock indicates the item has less stock than requested
	ErrOutOfStock = errors.New("out of stock")

	// ErrItemInactive indicates the item is not purchasable
	ErrItemInactive = errors.New("item inactive")

	// ErrRaffleNotActive indicates the raffle is not accepting entries
	ErrRaffleNotActive = errors.New("raffle not active")

	// ErrSoldOut indicates the raffle ticket pool is exhausted
	ErrSoldOut = errors.New("raffle sold out")

	// ErrPerUserLimitExceeded indicates the user's raffle entry cap was hit
	ErrPerUserLimitExceeded = errors.New("per-user entry limit exceeded")

	// ErrEmptyTable indicates a misconfigured lootbox reward table.
	// This is a server-side configuration error, not a caller error.
	ErrEmptyTable = errors.New("empty lootbox table")

	// ErrInvalidBet indicates a bet outside the game's configured range
	ErrInvalidBet = errors.New("invalid bet")

	// ErrConflict indicates transaction contention that persisted through
	// all retry attempts
	ErrConflict = errors.New("transaction conflict")
)
