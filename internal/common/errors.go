package common

import "errors"

// Ingestion failures
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("text extraction failed")
	ErrSizeLimitExceeded = errors.New("size limit exceeded")
)

// Index failures. ErrIndexInconsistency means a stored invariant no longer holds.
var (
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrIndexInconsistency = errors.New("index inconsistency")
)

// Model failures
var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrTransient        = errors.New("transient backend error")
	ErrFatal            = errors.New("fatal backend error")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

// Lookup and request failures
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)
