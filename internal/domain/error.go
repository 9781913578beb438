package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrForbidden            = errors.New("operation not allowed for this role")
	ErrNotLinked            = errors.New("trainer is not linked to this client")
	ErrPackageInactive      = errors.New("package is no longer active")
	ErrPaymentNotConfigured = errors.New("payment gateway is not configured")
	ErrGatewayRejected      = errors.New("payment gateway rejected the request")
	ErrRateLimited          = errors.New("too many attempts")
	ErrLockBusy             = errors.New("resource is locked by another operation")

	// Persistence-layer errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")
)
