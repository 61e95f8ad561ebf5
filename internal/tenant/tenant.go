package tenant

import (
	"time"

	"github.com/rmazzini/erp-approvals/internal/config"
)

// Tenant is one country/ERP backend with its own credentials and base URL.
// Records are read-only during a request; refresh swaps whole snapshots.
type Tenant struct {
	ID         string
	Name       string
	BaseURL    string
	QueryPath  string
	ActionPath string
	Username   string
	Password   string
	Timeout    time.Duration
	Active     bool
}

func fromConfig(cfg config.TenantConfig) *Tenant {
	return &Tenant{
		ID:         cfg.ID,
		Name:       cfg.Name,
		BaseURL:    cfg.BaseURL,
		QueryPath:  cfg.QueryPath,
		ActionPath: cfg.ActionPath,
		Username:   cfg.Username,
		Password:   cfg.Password,
		Timeout:    cfg.RequestTimeout(),
		Active:     cfg.Active,
	}
}
