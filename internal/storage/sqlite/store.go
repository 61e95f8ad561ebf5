// Package sqlite is the optional sqlite backing store for tenant records.
// Admin tooling writes tenant rows out of band; the registry reads them on
// refresh.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rmazzini/erp-approvals/internal/config"
)

// Store is a SQLite-backed tenant record store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the tenant database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_url TEXT NOT NULL,
		query_path TEXT NOT NULL DEFAULT '',
		action_path TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		timeout TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// ListTenants returns all tenant records in id order. It implements
// tenant.Source.
func (s *Store) ListTenants(ctx context.Context) ([]config.TenantConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, base_url, query_path,
		action_path, username, password, timeout, active
		FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []config.TenantConfig
	for rows.Next() {
		var t config.TenantConfig
		var active int
		if err := rows.Scan(&t.ID, &t.Name, &t.BaseURL, &t.QueryPath,
			&t.ActionPath, &t.Username, &t.Password, &t.Timeout, &active); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		t.Active = active != 0
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// UpsertTenant inserts or replaces one tenant record.
func (s *Store) UpsertTenant(ctx context.Context, t config.TenantConfig) error {
	active := 0
	if t.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tenants
		(id, name, base_url, query_path, action_path, username, password, timeout, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_url = excluded.base_url,
			query_path = excluded.query_path,
			action_path = excluded.action_path,
			username = excluded.username,
			password = excluded.password,
			timeout = excluded.timeout,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP`,
		t.ID, t.Name, t.BaseURL, t.QueryPath, t.ActionPath, t.Username, t.Password, t.Timeout, active)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTenant removes one tenant record.
func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tenant %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
