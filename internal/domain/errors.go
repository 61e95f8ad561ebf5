// Package domain provides the core types and the canonical error taxonomy
// for the approval hub.
package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind is the semantic category of a per-tenant failure. The taxonomy
// exists so the aggregator can report why a tenant is unavailable without
// leaking transport-library details to consumers.
type ErrorKind string

const (
	// ErrorKindNetwork indicates the backend was unreachable or timed out.
	ErrorKindNetwork ErrorKind = "network"

	// ErrorKindAuth indicates the backend rejected the tenant credentials.
	ErrorKindAuth ErrorKind = "auth"

	// ErrorKindServer indicates a backend-side rejection (4xx/5xx).
	ErrorKindServer ErrorKind = "server"

	// ErrorKindUnknown indicates an uncategorized failure.
	ErrorKindUnknown ErrorKind = "unknown"
)

// AggregationError is one failure observed for one tenant during fan-out.
// It is created fresh per aggregation call and never persisted.
type AggregationError struct {
	TenantID string    `json:"tenant_id"`
	Kind     ErrorKind `json:"kind"`

	// Status is the upstream HTTP status, when one was received.
	Status int `json:"status,omitempty"`

	Message string `json:"message"`
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tenant %s: %s (status %d): %s", e.TenantID, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("tenant %s: %s: %s", e.TenantID, e.Kind, e.Message)
}

// UpstreamError is returned by the ERP client when a backend responded with a
// non-success status. The body is carried verbatim for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Classify maps a transport failure into an AggregationError for the given
// tenant. Rules, in priority order: timeout/cancellation -> network; no HTTP
// response received -> network; 401/403 -> auth; any other received status
// -> server; anything else -> unknown. Non-auth 4xx is treated as
// backend-side because the aggregation caller cannot self-correct inline.
func Classify(tenantID string, err error) *AggregationError {
	aggErr := &AggregationError{TenantID: tenantID, Message: err.Error()}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		aggErr.Kind = ErrorKindNetwork
		return aggErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		aggErr.Kind = ErrorKindNetwork
		return aggErr
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		aggErr.Status = upErr.Status
		switch {
		case upErr.Status == http.StatusUnauthorized || upErr.Status == http.StatusForbidden:
			aggErr.Kind = ErrorKindAuth
		case upErr.Status >= 400:
			aggErr.Kind = ErrorKindServer
		default:
			aggErr.Kind = ErrorKindUnknown
		}
		return aggErr
	}

	aggErr.Kind = ErrorKindUnknown
	return aggErr
}
