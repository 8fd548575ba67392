package domain

import "errors"

var (
	// ErrInvalidInput is returned when a barcode is empty after trimming
	ErrInvalidInput = errors.New("invalid barcode")

	// ErrProductNotFound is returned when a single source has no record for a barcode
	ErrProductNotFound = errors.New("product not found")

	// ErrRemoteUnavailable is returned when the remote product service fails
	// (network error, timeout, non-2xx status or malformed payload)
	ErrRemoteUnavailable = errors.New("remote product service unavailable")

	// ErrPersistenceWriteFailed is returned when a remote hit could not be written to the internal store
	ErrPersistenceWriteFailed = errors.New("product store write failed")

	// ErrResolutionFailed is returned when every source missed or failed
	ErrResolutionFailed = errors.New("product resolution failed")

	// ErrCacheMiss is returned when data is not found in the in-memory store
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrScanSessionClosed is returned for observations sent to a disarmed or unknown scan session
	ErrScanSessionClosed = errors.New("scan session closed")

	// ErrScanAborted is returned when a scan session ends without a confirmation
	ErrScanAborted = errors.New("scan session aborted")
)
