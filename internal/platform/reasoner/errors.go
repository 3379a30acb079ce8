package reasoner

import "errors"

// Failure kinds surfaced to callers. Transient kinds (timeout, rate limit,
// overload) are never retried here so the caller can pick its own response;
// malformed output is retried up to the attempt budget and then reported as
// ErrExtraction.
var (
	ErrTimeout     = errors.New("reasoner: request timed out")
	ErrRateLimited = errors.New("reasoner: rate limited")
	ErrOverloaded  = errors.New("reasoner: service overloaded")
	ErrExtraction  = errors.New("reasoner: extraction failed")
)
