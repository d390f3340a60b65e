package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrPaymentNotFound      = errors.New("payment not found for provider id")
	ErrSubscriptionNotFound = errors.New("subscription not found for provider id")
	ErrProviderUnavailable  = errors.New("payment provider call failed")
	ErrInvalidState         = errors.New("entity is not in the required state")
	ErrSignatureInvalid     = errors.New("webhook signature verification failed")
	ErrUnknownProduct       = errors.New("unknown product/tier/currency combination")
	ErrNotImplemented       = errors.New("operation not implemented")

	// Storage-level errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context for query")
)
