package aggregate

import "github.com/rmazzini/erp-approvals/internal/domain"

// RetryPolicy decides whether a failed tenant call is attempted again.
// Policies are injectable so transient-failure handling stays explicit
// rather than inline in the fan-out loop.
type RetryPolicy interface {
	// ShouldRetry is consulted after each failed attempt; attempt counts
	// from 1. Returning false settles the tenant as failed.
	ShouldRetry(kind domain.ErrorKind, attempt int) bool
}

// NoRetry never retries; every tenant gets exactly one attempt.
type NoRetry struct{}

func (NoRetry) ShouldRetry(domain.ErrorKind, int) bool { return false }

// NetworkOnce retries exactly once, and only when the failure classified as
// a network error. Auth and server rejections are never retried.
type NetworkOnce struct{}

func (NetworkOnce) ShouldRetry(kind domain.ErrorKind, attempt int) bool {
	return kind == domain.ErrorKindNetwork && attempt < 2
}

// PolicyFromName maps a configuration value to a retry policy; unknown
// values fall back to NoRetry.
func PolicyFromName(name string) RetryPolicy {
	if name == "network-once" {
		return NetworkOnce{}
	}
	return NoRetry{}
}
