// Package chain evaluates sequential approval-chain eligibility. The roster
// is a strict FIFO chain: level k may act only once levels 0..k-1 are all
// approved. Evaluation is on demand; nothing is persisted.
package chain

import (
	"log/slog"

	"github.com/rmazzini/erp-approvals/internal/domain"
)

// Reason explains a negative eligibility decision.
type Reason string

const (
	// ReasonNoMatch means no roster identifier matched the caller's login.
	ReasonNoMatch Reason = "no_matching_identity"

	// ReasonEntrySettled means the caller's own entry is no longer pending:
	// they already acted, or the flow moved past them.
	ReasonEntrySettled Reason = "entry_already_settled"

	// ReasonChainOrder means an earlier entry is not yet approved.
	ReasonChainOrder Reason = "predecessor_not_approved"
)

// Eligibility is the outcome of one CanAct evaluation.
type Eligibility struct {
	Eligible bool `json:"eligible"`

	// Index is the caller's roster position, -1 when no identity matched.
	Index int `json:"index"`

	// Rule names the matching rule that located the caller.
	Rule string `json:"rule,omitempty"`

	Reason Reason `json:"reason,omitempty"`
}

// Resolver decides whether a caller is the next-in-line approver.
type Resolver struct {
	matcher *Matcher
}

// NewResolver creates a resolver. The logger receives fuzzy-match events.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{matcher: NewMatcher(logger)}
}

// CanAct reports whether the caller may approve or reject now. A caller is
// eligible when their own entry is pending and every earlier entry is
// approved; no entry may act out of order.
func (r *Resolver) CanAct(roster []domain.RosterEntry, login string) Eligibility {
	idx, rule, ok := r.matcher.Match(roster, login)
	if !ok {
		return Eligibility{Index: -1, Reason: ReasonNoMatch}
	}

	if roster[idx].State != domain.EntryPending {
		return Eligibility{Index: idx, Rule: rule, Reason: ReasonEntrySettled}
	}

	for i := 0; i < idx; i++ {
		if roster[i].State != domain.EntryApproved {
			return Eligibility{Index: idx, Rule: rule, Reason: ReasonChainOrder}
		}
	}

	return Eligibility{Eligible: true, Index: idx, Rule: rule}
}

// Entry returns the caller's own roster entry, matched by the same rules as
// CanAct. Dispatch uses it to obtain the canonical approver identifier the
// backend expects.
func (r *Resolver) Entry(roster []domain.RosterEntry, login string) (domain.RosterEntry, bool) {
	idx, _, ok := r.matcher.Match(roster, login)
	if !ok {
		return domain.RosterEntry{}, false
	}
	return roster[idx], true
}

// Status derives the document-level status from the roster: rejected wins
// over pending wins over approved, independent of entry order.
func Status(roster []domain.RosterEntry) domain.Status {
	pending := false
	for _, e := range roster {
		switch e.State {
		case domain.EntryRejected:
			return domain.StatusRejected
		case domain.EntryApproved:
		default:
			pending = true
		}
	}
	if pending {
		return domain.StatusPending
	}
	return domain.StatusApproved
}
