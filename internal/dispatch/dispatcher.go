// Package dispatch routes an approve/reject decision to the one backend
// that owns the document.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rmazzini/erp-approvals/internal/chain"
	"github.com/rmazzini/erp-approvals/internal/domain"
	"github.com/rmazzini/erp-approvals/internal/erp"
	"github.com/rmazzini/erp-approvals/internal/idempotency"
	"github.com/rmazzini/erp-approvals/internal/tenant"
)

const (
	ackTTL        = 15 * time.Minute
	ackMaxEntries = 4096
)

// Request is one submit attempt. Document must be freshly fetched: the
// dispatcher re-validates eligibility against its roster because the roster
// may have changed since the caller's view was rendered.
type Request struct {
	Document domain.Document
	Decision domain.Decision
	Caller   string
	Comment  string

	// IdempotencyKey, when set, replays the ack of a previous attempt with
	// the same key instead of issuing a second write.
	IdempotencyKey string
}

// Ack confirms a settled submission.
type Ack struct {
	TenantID   string          `json:"tenant_id"`
	DocumentID string          `json:"document_id"`
	Decision   domain.Decision `json:"decision"`
	ApproverID string          `json:"approver_id"`

	// NoOp marks an idempotent replay or a submission whose roster entry
	// had already settled in the requested direction.
	NoOp bool `json:"no_op,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// ActionClient is the per-tenant write surface. *erp.Client satisfies it.
type ActionClient interface {
	SubmitAction(ctx context.Context, req erp.ActionRequest) error
}

// ClientFactory builds the action client for one tenant.
type ClientFactory func(t *tenant.Tenant) ActionClient

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithClientFactory replaces the default erp.Client factory.
func WithClientFactory(f ClientFactory) Option {
	return func(d *Dispatcher) {
		d.newClient = f
	}
}

// Dispatcher performs the single write call for an approval decision.
type Dispatcher struct {
	registry  *tenant.Registry
	resolver  *chain.Resolver
	newClient ClientFactory
	acks      *idempotency.Cache[Ack]
	logger    *slog.Logger
}

// New creates a dispatcher.
func New(registry *tenant.Registry, resolver *chain.Resolver, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		resolver: resolver,
		newClient: func(t *tenant.Tenant) ActionClient {
			return erp.NewClient(t)
		},
		acks:   idempotency.NewCache[Ack](ackTTL, ackMaxEntries),
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit re-validates eligibility and issues the write. Eligibility failure
// is reported before any network call, distinctly from a backend rejection.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (Ack, error) {
	if !req.Decision.Valid() {
		return Ack{}, &SubmitError{Kind: KindNotEligible, Message: "unknown decision", Reason: "invalid_decision"}
	}

	if cached, ok := d.acks.Get(req.IdempotencyKey); ok {
		cached.NoOp = true
		return cached, nil
	}

	roster := req.Document.Roster
	elig := d.resolver.CanAct(roster, req.Caller)
	if !elig.Eligible {
		// A repeat submission against an entry that already settled in the
		// requested direction is a no-op success, not an error.
		if elig.Reason == chain.ReasonEntrySettled && roster[elig.Index].State == settledState(req.Decision) {
			return d.ack(req, roster[elig.Index].ApproverID, true), nil
		}
		return Ack{}, &SubmitError{Kind: KindNotEligible, Reason: elig.Reason}
	}

	// The backend expects the roster's own machine identifier, never the
	// caller's raw login.
	approverID := roster[elig.Index].ApproverID

	t, err := d.registry.ResolveRef(req.Document.Ref())
	if err != nil {
		return Ack{}, &SubmitError{Kind: KindTenant, Message: err.Error()}
	}

	callCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	err = d.newClient(t).SubmitAction(callCtx, erp.ActionRequest{
		Kind:       req.Document.Kind,
		DocumentID: req.Document.ID,
		ApproverID: approverID,
		Decision:   req.Decision,
		Comment:    req.Comment,
		Branch:     req.Document.Branch,
	})
	if err != nil {
		subErr := &SubmitError{Kind: KindUpstream, Message: err.Error()}
		var upErr *domain.UpstreamError
		if errors.As(err, &upErr) {
			subErr.Status = upErr.Status
			subErr.Body = upErr.Body
		}
		d.logger.Error("action submit failed",
			slog.String("tenant", t.ID),
			slog.String("document", req.Document.Key().DocumentID),
			slog.String("decision", string(req.Decision)),
			slog.Int("status", subErr.Status),
		)
		return Ack{}, subErr
	}

	ack := d.ack(req, approverID, false)
	d.acks.Set(req.IdempotencyKey, ack)

	d.logger.Info("action submitted",
		slog.String("tenant", ack.TenantID),
		slog.String("document", ack.DocumentID),
		slog.String("decision", string(ack.Decision)),
		slog.String("approver", approverID),
	)
	return ack, nil
}

func (d *Dispatcher) ack(req Request, approverID string, noop bool) Ack {
	return Ack{
		TenantID:    req.Document.TenantID,
		DocumentID:  req.Document.Key().DocumentID,
		Decision:    req.Decision,
		ApproverID:  approverID,
		NoOp:        noop,
		SubmittedAt: time.Now().UTC(),
	}
}

func settledState(d domain.Decision) domain.EntryState {
	if d == domain.DecisionReject {
		return domain.EntryRejected
	}
	return domain.EntryApproved
}
