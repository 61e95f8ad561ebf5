// Package approvals provides the public API for embedding the approval hub.
// This is the stable API for external consumers.
package approvals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmazzini/erp-approvals/internal/aggregate"
	"github.com/rmazzini/erp-approvals/internal/chain"
	"github.com/rmazzini/erp-approvals/internal/config"
	"github.com/rmazzini/erp-approvals/internal/dispatch"
	"github.com/rmazzini/erp-approvals/internal/domain"
	"github.com/rmazzini/erp-approvals/internal/server"
	"github.com/rmazzini/erp-approvals/internal/storage/sqlite"
	"github.com/rmazzini/erp-approvals/internal/tenant"
)

// Hub bundles the aggregation-and-approval core: tenant registry, parallel
// aggregator, chain resolver, and action dispatcher. Consumers either embed
// it as a library or serve it over HTTP with Serve.
type Hub struct {
	Registry   *tenant.Registry
	Aggregator *aggregate.Aggregator
	Resolver   *chain.Resolver
	Dispatcher *dispatch.Dispatcher

	store *sqlite.Store
	srv   *server.Server
}

// Option is a functional option for configuring a Hub.
type Option func(*options)

type options struct {
	configPath string
	logger     *slog.Logger
	retry      aggregate.RetryPolicy
}

// WithFileConfig sets the YAML configuration file path.
func WithFileConfig(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger sets the logger used across components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRetryPolicy overrides the configured tenant-call retry policy.
func WithRetryPolicy(p aggregate.RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// New creates a Hub from configuration.
// Example:
//
//	hub, err := approvals.New(
//	    approvals.WithFileConfig("config.yaml"),
//	    approvals.WithLogger(logger),
//	)
func New(opts ...Option) (*Hub, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	h := &Hub{}

	registry, err := tenant.NewRegistry(cfg.Tenants, cfg.DefaultTenant)
	if err != nil {
		return nil, fmt.Errorf("failed to build tenant registry: %w", err)
	}
	h.Registry = registry

	if cfg.Storage.Type == "sqlite" {
		store, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open tenant store: %w", err)
		}
		h.store = store
		if err := registry.ReloadFrom(context.Background(), store); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to load tenants from store: %w", err)
		}
	}

	retry := o.retry
	if retry == nil {
		retry = aggregate.PolicyFromName(cfg.Aggregate.Retry)
	}

	h.Resolver = chain.NewResolver(o.logger)
	h.Aggregator = aggregate.New(registry, o.logger, aggregate.WithRetryPolicy(retry))
	h.Dispatcher = dispatch.New(registry, h.Resolver, o.logger)

	// Built here, not in Serve: Shutdown may run on the signal path while
	// Serve blocks in a goroutine, so the server must exist before either.
	timeout, err := time.ParseDuration(cfg.Server.RequestTimeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	h.srv = server.New(cfg.Server.Port, timeout, o.logger)
	server.NewHandlers(h.Aggregator, h.Resolver, h.Dispatcher, o.logger).Register(h.srv.Router)

	return h, nil
}

// FetchAll queries every active tenant for the approver's pending documents.
func (h *Hub) FetchAll(ctx context.Context, approver, filter string) domain.AggregateResult {
	return h.Aggregator.FetchAll(ctx, approver, filter)
}

// CanAct reports whether the caller is the next-in-line approver.
func (h *Hub) CanAct(roster []domain.RosterEntry, login string) chain.Eligibility {
	return h.Resolver.CanAct(roster, login)
}

// Submit routes an approve/reject decision to the document's owning tenant.
func (h *Hub) Submit(ctx context.Context, req dispatch.Request) (dispatch.Ack, error) {
	return h.Dispatcher.Submit(ctx, req)
}

// Refresh reloads tenant records from the backing store, when one is
// configured.
func (h *Hub) Refresh(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	return h.Registry.ReloadFrom(ctx, h.store)
}

// Serve starts the HTTP surface and blocks until the listener stops.
func (h *Hub) Serve() error {
	return h.srv.Start()
}

// Shutdown drains the HTTP server and closes the tenant store.
func (h *Hub) Shutdown(ctx context.Context) error {
	var firstErr error
	if h.srv != nil {
		if err := h.srv.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
