package approvals

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// The HTTP server must exist as soon as New returns: Serve blocks in a
// goroutine while Shutdown runs on the signal path, so a signal arriving
// before the listener is up still has a server to drain.
func TestNew_ServerReadyBeforeServe(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9091
  request_timeout: 5s
tenants:
  - id: BR
    base_url: http://br.erp.local
    active: true
`)

	hub, err := New(WithFileConfig(path))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if hub.srv == nil {
		t.Fatal("server not constructed by New")
	}
	if hub.srv.Port != 9091 {
		t.Errorf("server port = %d, want 9091", hub.srv.Port)
	}
	if hub.srv.Router == nil {
		t.Error("router not mounted")
	}

	// Shutdown without Serve is a clean no-op drain.
	if err := hub.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() before Serve error = %v", err)
	}
}

func TestNew_ComponentsWired(t *testing.T) {
	path := writeConfig(t, `
default_tenant: BR
tenants:
  - id: BR
    base_url: http://br.erp.local
    active: true
  - id: AR
    base_url: http://ar.erp.local
    active: true
`)

	hub, err := New(WithFileConfig(path))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if hub.Registry == nil || hub.Aggregator == nil || hub.Resolver == nil || hub.Dispatcher == nil {
		t.Fatal("core components not wired")
	}
	if got := len(hub.Registry.Active()); got != 2 {
		t.Errorf("active tenants = %d, want 2", got)
	}

	// No backing store configured: Refresh is a no-op.
	if err := hub.Refresh(context.Background()); err != nil {
		t.Errorf("Refresh() error = %v", err)
	}
}
