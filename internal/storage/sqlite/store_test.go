package sqlite

import (
	"context"
	"testing"

	"github.com/rmazzini/erp-approvals/internal/config"
	"github.com/rmazzini/erp-approvals/internal/tenant"
)

func TestStore_UpsertAndList(t *testing.T) {
	// Use in-memory SQLite with shared cache for testing
	store, err := New("file:memdb1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	br := config.TenantConfig{
		ID:       "BR",
		Name:     "Brazil",
		BaseURL:  "https://br.erp.example.com",
		Username: "svc-br",
		Password: "secret",
		Timeout:  "10s",
		Active:   true,
	}
	ar := config.TenantConfig{
		ID:       "AR",
		Name:     "Argentina",
		BaseURL:  "https://ar.erp.example.com",
		Username: "svc-ar",
		Password: "secret",
		Active:   false,
	}

	if err := store.UpsertTenant(ctx, br); err != nil {
		t.Fatalf("UpsertTenant(BR) error = %v", err)
	}
	if err := store.UpsertTenant(ctx, ar); err != nil {
		t.Fatalf("UpsertTenant(AR) error = %v", err)
	}

	tenants, err := store.ListTenants(ctx)
	if err != nil {
		t.Fatalf("ListTenants() error = %v", err)
	}
	if len(tenants) != 2 {
		t.Fatalf("ListTenants() count = %d, want 2", len(tenants))
	}

	// id order
	if tenants[0].ID != "AR" || tenants[1].ID != "BR" {
		t.Errorf("ListTenants() order = [%s %s], want [AR BR]", tenants[0].ID, tenants[1].ID)
	}
	if tenants[0].Active {
		t.Error("AR should round-trip as inactive")
	}
	if tenants[1].BaseURL != br.BaseURL {
		t.Errorf("BaseURL = %v, want %v", tenants[1].BaseURL, br.BaseURL)
	}
	if tenants[1].Timeout != "10s" {
		t.Errorf("Timeout = %v, want 10s", tenants[1].Timeout)
	}
}

func TestStore_UpsertReplacesExisting(t *testing.T) {
	store, err := New("file:memdb2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	rec := config.TenantConfig{
		ID:       "CL",
		Name:     "Chile",
		BaseURL:  "https://cl.erp.example.com",
		Username: "svc-cl",
		Password: "old",
		Active:   true,
	}
	if err := store.UpsertTenant(ctx, rec); err != nil {
		t.Fatalf("UpsertTenant() error = %v", err)
	}

	rec.Password = "rotated"
	rec.Active = false
	if err := store.UpsertTenant(ctx, rec); err != nil {
		t.Fatalf("UpsertTenant() second error = %v", err)
	}

	tenants, err := store.ListTenants(ctx)
	if err != nil {
		t.Fatalf("ListTenants() error = %v", err)
	}
	if len(tenants) != 1 {
		t.Fatalf("ListTenants() count = %d, want 1", len(tenants))
	}
	if tenants[0].Password != "rotated" {
		t.Errorf("Password = %v, want rotated", tenants[0].Password)
	}
	if tenants[0].Active {
		t.Error("tenant should be inactive after upsert")
	}
}

func TestStore_DeleteTenant(t *testing.T) {
	store, err := New("file:memdb3?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.UpsertTenant(ctx, config.TenantConfig{
		ID: "PY", Name: "Paraguay", BaseURL: "https://py.erp.example.com",
		Username: "svc-py", Password: "secret", Active: true,
	}); err != nil {
		t.Fatalf("UpsertTenant() error = %v", err)
	}

	if err := store.DeleteTenant(ctx, "PY"); err != nil {
		t.Fatalf("DeleteTenant() error = %v", err)
	}

	tenants, err := store.ListTenants(ctx)
	if err != nil {
		t.Fatalf("ListTenants() error = %v", err)
	}
	if len(tenants) != 0 {
		t.Errorf("ListTenants() count after delete = %d, want 0", len(tenants))
	}

	// Deleting a missing row is not an error.
	if err := store.DeleteTenant(ctx, "PY"); err != nil {
		t.Errorf("DeleteTenant() on missing row error = %v", err)
	}
}

func TestStore_RegistryReloadFrom(t *testing.T) {
	store, err := New("file:memdb4?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.UpsertTenant(ctx, config.TenantConfig{
		ID: "BR", Name: "Brazil", BaseURL: "https://br.erp.example.com",
		Username: "svc-br", Password: "secret", Active: true,
	}); err != nil {
		t.Fatalf("UpsertTenant() error = %v", err)
	}
	if err := store.UpsertTenant(ctx, config.TenantConfig{
		ID: "UY", Name: "Uruguay", BaseURL: "https://uy.erp.example.com",
		Username: "svc-uy", Password: "secret", Active: false,
	}); err != nil {
		t.Fatalf("UpsertTenant() error = %v", err)
	}

	reg, err := tenant.NewRegistry(nil, "BR")
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if err := reg.ReloadFrom(ctx, store); err != nil {
		t.Fatalf("ReloadFrom() error = %v", err)
	}

	active := reg.Active()
	if len(active) != 1 || active[0].ID != "BR" {
		t.Fatalf("Active() = %v, want just BR", active)
	}
	if _, err := reg.Resolve("UY"); err == nil {
		t.Error("Resolve(UY) should fail for inactive tenant")
	}
}
