package dispatch

import (
	"fmt"

	"github.com/rmazzini/erp-approvals/internal/chain"
)

// ErrorKind distinguishes the terminal failure modes of a submit. The
// consumer must be able to tell "you can no longer act on this" from "the
// backend rejected the write".
type ErrorKind string

const (
	// KindNotEligible means the chain-order re-check failed before any
	// network call was attempted.
	KindNotEligible ErrorKind = "not_eligible"

	// KindDocumentNotFound means the target document is no longer in the
	// caller's view.
	KindDocumentNotFound ErrorKind = "document_not_found"

	// KindTenant means the owning tenant could not be resolved.
	KindTenant ErrorKind = "tenant"

	// KindUpstream means the write reached the backend (or the transport)
	// and failed there.
	KindUpstream ErrorKind = "upstream"
)

// SubmitError is the single terminal error of a submit attempt. Exactly one
// tenant is targeted, so there is never partial state to report.
type SubmitError struct {
	Kind ErrorKind

	// Reason carries the eligibility reason for KindNotEligible.
	Reason chain.Reason

	// Status and Body carry the upstream response verbatim for
	// KindUpstream failures that received one.
	Status int
	Body   string

	Message string
}

func (e *SubmitError) Error() string {
	switch {
	case e.Kind == KindNotEligible:
		return fmt.Sprintf("not eligible: %s", e.Reason)
	case e.Status != 0:
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// NotFound creates a document-not-found submit error.
func NotFound(documentID string) *SubmitError {
	return &SubmitError{
		Kind:    KindDocumentNotFound,
		Message: fmt.Sprintf("document %s is no longer available", documentID),
	}
}
