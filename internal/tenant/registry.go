// Package tenant holds the registry of configured ERP backends.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rmazzini/erp-approvals/internal/config"
	"github.com/rmazzini/erp-approvals/internal/domain"
)

// ErrNotFound is returned when a tenant id is unknown or inactive. Callers
// should not hold a document tagged with such a tenant.
var ErrNotFound = errors.New("tenant not found")

// Source provides tenant records for registry refreshes. The config file is
// one source; the sqlite store is another.
type Source interface {
	ListTenants(ctx context.Context) ([]config.TenantConfig, error)
}

// Registry is a snapshot of configured tenants. Lookups never mutate it;
// Reload replaces the snapshot atomically.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	tenants   map[string]*Tenant
	defaultID string
}

// NewRegistry builds a registry from explicit tenant configs. defaultID
// names the tenant used for documents without provenance; empty means the
// first configured active tenant.
func NewRegistry(configs []config.TenantConfig, defaultID string) (*Registry, error) {
	r := &Registry{defaultID: defaultID}
	if err := r.Reload(configs); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload replaces the tenant snapshot.
func (r *Registry) Reload(configs []config.TenantConfig) error {
	order := make([]string, 0, len(configs))
	tenants := make(map[string]*Tenant, len(configs))

	for _, cfg := range configs {
		if cfg.ID == "" {
			return errors.New("tenant config missing id")
		}
		if _, dup := tenants[cfg.ID]; dup {
			return fmt.Errorf("duplicate tenant id %q", cfg.ID)
		}
		if cfg.BaseURL == "" {
			return fmt.Errorf("tenant %s missing base_url", cfg.ID)
		}
		tenants[cfg.ID] = fromConfig(cfg)
		order = append(order, cfg.ID)
	}

	r.mu.Lock()
	r.order = order
	r.tenants = tenants
	r.mu.Unlock()
	return nil
}

// ReloadFrom refreshes the snapshot from a backing source.
func (r *Registry) ReloadFrom(ctx context.Context, src Source) error {
	configs, err := src.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}
	return r.Reload(configs)
}

// Active returns the active tenants in configuration order.
func (r *Registry) Active() []*Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*Tenant
	for _, id := range r.order {
		if t := r.tenants[id]; t.Active {
			active = append(active, t)
		}
	}
	return active
}

// Resolve returns the active tenant with the given id.
func (r *Registry) Resolve(id string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[id]
	if !ok || !t.Active {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// ResolveRef resolves a tenant reference, falling back to the default tenant
// for documents without provenance in single-tenant deployments.
func (r *Registry) ResolveRef(ref domain.TenantRef) (*Tenant, error) {
	if !ref.IsDefault() {
		return r.Resolve(ref.ID())
	}

	r.mu.RLock()
	defaultID := r.defaultID
	r.mu.RUnlock()

	if defaultID != "" {
		return r.Resolve(defaultID)
	}
	active := r.Active()
	if len(active) == 0 {
		return nil, fmt.Errorf("%w: no default tenant configured", ErrNotFound)
	}
	return active[0], nil
}
