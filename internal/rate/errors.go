package rate

import "errors"

// ErrRedisUnavailable wraps transport-level failures of the shared cache.
var ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
