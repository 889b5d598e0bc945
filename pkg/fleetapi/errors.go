package fleetapi

import "errors"

var (
	// ErrRateLimitExceeded is returned once the bounded 429 retry budget is
	// exhausted. Callers treat it as "nothing found", not a hard failure.
	ErrRateLimitExceeded = errors.New("rate limit exceeded, maximum amount of retries exceeded")

	// ErrRequestFailed covers any non-success, non-429 HTTP status. It is
	// never retried.
	ErrRequestFailed = errors.New("request failed")

	// ErrAuthExpired means the injected access token is no longer valid.
	// There is no automated recovery; the owning process must terminate.
	ErrAuthExpired = errors.New("access token expired")

	errMissingField = errors.New("expected field absent from response")
)
