package sheetsync

import "errors"

var (
	// Addressing and configuration errors. Never retried.
	ErrInvalidColumn    = errors.New("invalid column")
	ErrMalformedRange   = errors.New("malformed range")
	ErrUnknownHeader    = errors.New("unknown header")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrRowLimitExceeded = errors.New("row limit exceeded")
	ErrBatchMismatch    = errors.New("batch ranges and data length mismatch")

	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrTransientRemote marks remote failures worth retrying (rate limits, 5xx, transport).
	ErrTransientRemote = errors.New("transient remote error")
	// ErrPermanentRemote marks remote failures that will not succeed on retry.
	ErrPermanentRemote = errors.New("permanent remote error")

	// Returned by Pullable.Find. Both mean "create a new record instead".
	ErrRecordNotFound  = errors.New("record not found")
	ErrInvalidIdentity = errors.New("invalid identity")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientRemote)
}
