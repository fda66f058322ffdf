package models

import "errors"

// Engine error taxonomy. These are returned as typed results to resource
// services, which translate them into user-facing messages.
var (
	ErrTierNotFound             = errors.New("tier not found")
	ErrAccountNotFound          = errors.New("account not found")
	ErrSubAccountNotFound       = errors.New("sub-account not found")
	ErrSubAccountLimitReached   = errors.New("sub-account limit reached for tier")
	ErrInvalidTierTransition    = errors.New("invalid tier transition")
	ErrInvalidAccessScope       = errors.New("access scope references listings not owned by parent")
	ErrPermissionNotDelegatable = errors.New("permission not held by parent account")
	ErrVersionConflict          = errors.New("account version conflict")
	ErrTransientFailure         = errors.New("transient failure, retry the operation")
	ErrBatchTooLarge            = errors.New("batch exceeds maximum size")
)

// MaxBulkBatchSize caps bulk tier updates to bound worst-case latency and the
// blast radius of partial failures.
const MaxBulkBatchSize = 100
