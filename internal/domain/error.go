package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("database operation failed")

	// Import pipeline errors
	ErrUnsupportedFileFormat = errors.New("unsupported file format")
	ErrFatalDecode           = errors.New("file could not be read")
	ErrRowValidation         = errors.New("row validation failed")
	ErrBatchPersist          = errors.New("batch failed to persist")
	ErrJobNotFound           = errors.New("import job not found")
	ErrJobTimedOut           = errors.New("import timed out")
	ErrJobAlreadyFinalized   = errors.New("import job is no longer processing")
	ErrQueueFull             = errors.New("import queue is full")
	ErrLockNotAcquired       = errors.New("lock not acquired")
)
