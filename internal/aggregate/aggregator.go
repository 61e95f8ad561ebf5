// Package aggregate fans one logical query out to every active tenant.
package aggregate

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rmazzini/erp-approvals/internal/domain"
	"github.com/rmazzini/erp-approvals/internal/erp"
	"github.com/rmazzini/erp-approvals/internal/tenant"
)

// DocumentsClient is the per-tenant query surface the aggregator needs.
// *erp.Client satisfies it; tests substitute fakes.
type DocumentsClient interface {
	QueryDocuments(ctx context.Context, approver, filter string) ([]domain.Document, error)
}

// ClientFactory builds the query client for one tenant.
type ClientFactory func(t *tenant.Tenant) DocumentsClient

// Option configures the aggregator.
type Option func(*Aggregator)

// WithClientFactory replaces the default erp.Client factory.
func WithClientFactory(f ClientFactory) Option {
	return func(a *Aggregator) {
		a.newClient = f
	}
}

// WithRetryPolicy sets the per-tenant retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(a *Aggregator) {
		a.retry = p
	}
}

// Aggregator issues one query per active tenant concurrently, waits for all
// of them to settle, and merges the outcomes with provenance.
type Aggregator struct {
	registry  *tenant.Registry
	newClient ClientFactory
	retry     RetryPolicy
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates an aggregator over the given registry.
func New(registry *tenant.Registry, logger *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry: registry,
		newClient: func(t *tenant.Tenant) DocumentsClient {
			return erp.NewClient(t)
		},
		retry:  NoRetry{},
		logger: logger,
		tracer: otel.Tracer("aggregate"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// tenantOutcome is the immutable partial result of one tenant's call. Each
// goroutine writes only its own slot; merging happens after the join point.
type tenantOutcome struct {
	tenantID  string
	documents []domain.Document
	err       *domain.AggregationError
}

// FetchAll queries every active tenant for documents pending the given
// approver. It never fails fast: a single unreachable country must not hide
// documents from the others, so every tenant's outcome is awaited and
// per-tenant failures are collected, not returned as an error. All tenants
// failing is a valid outcome the caller must render.
func (a *Aggregator) FetchAll(ctx context.Context, approver, filter string) domain.AggregateResult {
	tenants := a.registry.Active()
	if len(tenants) == 0 {
		return domain.AggregateResult{
			Documents: []domain.Document{},
			Succeeded: []string{},
			Failed:    []string{},
		}
	}

	outcomes := make([]tenantOutcome, len(tenants))
	g := new(errgroup.Group)

	for i, t := range tenants {
		g.Go(func() error {
			outcomes[i] = a.fetchTenant(ctx, t, approver, filter)
			return nil
		})
	}
	// The goroutines never return errors; Wait is purely the settle-all
	// join point.
	_ = g.Wait()

	result := domain.AggregateResult{
		Documents: []domain.Document{},
		Succeeded: []string{},
		Failed:    []string{},
	}
	for _, out := range outcomes {
		if out.err != nil {
			result.Failed = append(result.Failed, out.tenantID)
			result.Errors = append(result.Errors, out.err)
			continue
		}
		result.Succeeded = append(result.Succeeded, out.tenantID)
		result.Documents = append(result.Documents, out.documents...)
	}
	return result
}

// FetchOne re-fetches a single document from its owning tenant, filtered by
// document number. It returns false when the caller's view of the document
// is gone. Dispatch callers use it to obtain a fresh roster immediately
// before the write.
func (a *Aggregator) FetchOne(ctx context.Context, ref domain.TenantRef, approver, documentID string) (domain.Document, bool, error) {
	t, err := a.registry.ResolveRef(ref)
	if err != nil {
		return domain.Document{}, false, err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	id := strings.TrimSpace(documentID)
	docs, err := a.newClient(t).QueryDocuments(callCtx, approver, id)
	if err != nil {
		return domain.Document{}, false, domain.Classify(t.ID, err)
	}

	for _, doc := range docs {
		doc.TenantID = t.ID
		if doc.Key().DocumentID == id {
			return doc, true, nil
		}
	}
	return domain.Document{}, false, nil
}

func (a *Aggregator) fetchTenant(ctx context.Context, t *tenant.Tenant, approver, filter string) tenantOutcome {
	ctx, span := a.tracer.Start(ctx, "aggregate.fetchTenant",
		trace.WithAttributes(attribute.String("tenant.id", t.ID)))
	defer span.End()

	client := a.newClient(t)

	var lastErr *domain.AggregationError
	for attempt := 1; ; attempt++ {
		// Each attempt gets the tenant's own timeout; expiry settles this
		// tenant only and does not cancel sibling calls.
		callCtx, cancel := context.WithTimeout(ctx, t.Timeout)
		docs, err := client.QueryDocuments(callCtx, approver, filter)
		cancel()

		if err == nil {
			for i := range docs {
				docs[i].TenantID = t.ID
			}
			a.logger.Debug("tenant query succeeded",
				slog.String("tenant", t.ID),
				slog.Int("documents", len(docs)),
				slog.Int("attempt", attempt),
			)
			return tenantOutcome{tenantID: t.ID, documents: docs}
		}

		lastErr = domain.Classify(t.ID, err)
		a.logger.Warn("tenant query failed",
			slog.String("tenant", t.ID),
			slog.String("kind", string(lastErr.Kind)),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if !a.retry.ShouldRetry(lastErr.Kind, attempt) {
			break
		}
	}

	return tenantOutcome{tenantID: t.ID, err: lastErr}
}
