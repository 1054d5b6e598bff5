package ratelimit

import "errors"

var (
	ErrInvalidLimit  = errors.New("ratelimit: limit must be positive")
	ErrInvalidWindow = errors.New("ratelimit: window must be positive")
	ErrKeyRequired   = errors.New("ratelimit: key is required")
	ErrStoreRequired = errors.New("ratelimit: store is required")

	// ErrContention is returned by RedisStore when a key kept changing under
	// every optimistic transaction attempt.
	ErrContention = errors.New("ratelimit: too much contention on key")
)
