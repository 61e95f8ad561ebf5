package aggregate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/rmazzini/erp-approvals/internal/config"
	"github.com/rmazzini/erp-approvals/internal/domain"
	"github.com/rmazzini/erp-approvals/internal/tenant"
)

// stubClient implements DocumentsClient for testing
type stubClient struct {
	docs    []domain.Document
	err     error
	delay   time.Duration
	calls   int
	failFor int // fail the first N calls, then succeed
}

func (s *stubClient) QueryDocuments(ctx context.Context, approver, filter string) ([]domain.Document, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil && (s.failFor == 0 || s.calls <= s.failFor) {
		return nil, s.err
	}
	return s.docs, nil
}

func testRegistry(t *testing.T, ids ...string) *tenant.Registry {
	t.Helper()
	configs := make([]config.TenantConfig, len(ids))
	for i, id := range ids {
		configs[i] = config.TenantConfig{
			ID:      id,
			BaseURL: "http://" + id + ".erp.local",
			Timeout: "200ms",
			Active:  true,
		}
	}
	reg, err := tenant.NewRegistry(configs, "")
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func newTestAggregator(t *testing.T, reg *tenant.Registry, clients map[string]*stubClient, opts ...Option) *Aggregator {
	t.Helper()
	opts = append(opts, WithClientFactory(func(tn *tenant.Tenant) DocumentsClient {
		return clients[tn.ID]
	}))
	return New(reg, slog.New(slog.DiscardHandler), opts...)
}

func TestAggregator_FetchAll_PartialFailure(t *testing.T) {
	reg := testRegistry(t, "BR", "AR")
	clients := map[string]*stubClient{
		"BR": {docs: []domain.Document{
			{ID: "000100", Kind: domain.KindPurchaseOrder},
			{ID: "000101", Kind: domain.KindPurchaseOrder},
		}},
		// AR never answers within its timeout.
		"AR": {delay: 5 * time.Second},
	}

	result := newTestAggregator(t, reg, clients).FetchAll(context.Background(), "jose.silva", "")

	if len(result.Documents) != 2 {
		t.Fatalf("FetchAll() documents = %d, want 2", len(result.Documents))
	}
	for _, doc := range result.Documents {
		if doc.TenantID != "BR" {
			t.Errorf("document %s tagged %q, want BR", doc.ID, doc.TenantID)
		}
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0] != "BR" {
		t.Errorf("Succeeded = %v, want [BR]", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "AR" {
		t.Errorf("Failed = %v, want [AR]", result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want one entry", result.Errors)
	}
	if result.Errors[0].TenantID != "AR" || result.Errors[0].Kind != domain.ErrorKindNetwork {
		t.Errorf("error = %+v, want AR/network", result.Errors[0])
	}
}

func TestAggregator_FetchAll_SettleAll(t *testing.T) {
	reg := testRegistry(t, "BR", "AR", "CL")
	clients := map[string]*stubClient{
		"BR": {err: &domain.UpstreamError{Status: 500}},
		// AR is slower than BR's instant failure; its documents must still
		// be awaited, a failing sibling never aborts the fan-out.
		"AR": {docs: []domain.Document{{ID: "000200"}}, delay: 50 * time.Millisecond},
		"CL": {err: &domain.UpstreamError{Status: 401}},
	}

	result := newTestAggregator(t, reg, clients).FetchAll(context.Background(), "ana.souza", "")

	if got := len(result.Succeeded) + len(result.Failed); got != 3 {
		t.Errorf("succeeded+failed = %d, want 3", got)
	}
	if len(result.Documents) != 1 || result.Documents[0].TenantID != "AR" {
		t.Errorf("documents = %+v, want the slow tenant's document", result.Documents)
	}

	kinds := map[string]domain.ErrorKind{}
	for _, e := range result.Errors {
		kinds[e.TenantID] = e.Kind
	}
	if kinds["BR"] != domain.ErrorKindServer {
		t.Errorf("BR kind = %v, want server", kinds["BR"])
	}
	if kinds["CL"] != domain.ErrorKindAuth {
		t.Errorf("CL kind = %v, want auth", kinds["CL"])
	}
}

func TestAggregator_FetchAll_Provenance(t *testing.T) {
	reg := testRegistry(t, "BR", "CL")
	clients := map[string]*stubClient{
		"BR": {docs: []domain.Document{{ID: "1"}, {ID: "2"}}},
		"CL": {docs: []domain.Document{{ID: "1"}}},
	}

	result := newTestAggregator(t, reg, clients).FetchAll(context.Background(), "ana", "")

	succeeded := map[string]bool{}
	for _, id := range result.Succeeded {
		succeeded[id] = true
	}
	for _, doc := range result.Documents {
		if !succeeded[doc.TenantID] {
			t.Errorf("document %s carries tenant %q outside the succeeded set", doc.ID, doc.TenantID)
		}
	}
	if len(result.Documents) != 3 {
		t.Errorf("documents = %d, want 3", len(result.Documents))
	}
}

func TestAggregator_FetchAll_NoTenants(t *testing.T) {
	reg := testRegistry(t)
	result := New(reg, slog.New(slog.DiscardHandler)).FetchAll(context.Background(), "ana", "")

	if len(result.Documents) != 0 || len(result.Errors) != 0 {
		t.Errorf("empty registry: got %+v, want empty result without errors", result)
	}
}

func TestAggregator_FetchAll_AllFail(t *testing.T) {
	reg := testRegistry(t, "BR", "AR")
	clients := map[string]*stubClient{
		"BR": {err: &domain.UpstreamError{Status: 503}},
		"AR": {err: &domain.UpstreamError{Status: 500}},
	}

	result := newTestAggregator(t, reg, clients).FetchAll(context.Background(), "ana", "")

	if len(result.Documents) != 0 {
		t.Errorf("documents = %d, want 0", len(result.Documents))
	}
	if len(result.Failed) != 2 || len(result.Errors) != 2 {
		t.Errorf("failed = %v errors = %v, want both tenants", result.Failed, result.Errors)
	}
	if len(result.Succeeded) != 0 {
		t.Errorf("succeeded = %v, want empty", result.Succeeded)
	}
}

func TestAggregator_RetryPolicy(t *testing.T) {
	t.Run("network failure retried once", func(t *testing.T) {
		reg := testRegistry(t, "BR")
		client := &stubClient{
			docs:    []domain.Document{{ID: "000300"}},
			err:     context.DeadlineExceeded,
			failFor: 1,
		}
		agg := newTestAggregator(t, reg, map[string]*stubClient{"BR": client},
			WithRetryPolicy(NetworkOnce{}))

		result := agg.FetchAll(context.Background(), "ana", "")
		if client.calls != 2 {
			t.Errorf("calls = %d, want 2", client.calls)
		}
		if len(result.Documents) != 1 {
			t.Errorf("documents = %d, want 1 after retry", len(result.Documents))
		}
	})

	t.Run("auth failure never retried", func(t *testing.T) {
		reg := testRegistry(t, "BR")
		client := &stubClient{err: &domain.UpstreamError{Status: 401}}
		agg := newTestAggregator(t, reg, map[string]*stubClient{"BR": client},
			WithRetryPolicy(NetworkOnce{}))

		agg.FetchAll(context.Background(), "ana", "")
		if client.calls != 1 {
			t.Errorf("calls = %d, want 1", client.calls)
		}
	})

	t.Run("default policy is single attempt", func(t *testing.T) {
		reg := testRegistry(t, "BR")
		client := &stubClient{err: context.DeadlineExceeded}
		agg := newTestAggregator(t, reg, map[string]*stubClient{"BR": client})

		agg.FetchAll(context.Background(), "ana", "")
		if client.calls != 1 {
			t.Errorf("calls = %d, want 1", client.calls)
		}
	})
}

func TestAggregator_FetchOne(t *testing.T) {
	reg := testRegistry(t, "BR")
	client := &stubClient{docs: []domain.Document{
		{ID: " 000123 ", Kind: domain.KindPurchaseOrder},
		{ID: "000456"},
	}}
	agg := newTestAggregator(t, reg, map[string]*stubClient{"BR": client})

	doc, found, err := agg.FetchOne(context.Background(), domain.TenantFor("BR"), "ana", "000123")
	if err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if !found {
		t.Fatal("FetchOne() found = false, want true")
	}
	if doc.TenantID != "BR" {
		t.Errorf("TenantID = %q, want BR", doc.TenantID)
	}

	_, found, err = agg.FetchOne(context.Background(), domain.TenantFor("BR"), "ana", "999999")
	if err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if found {
		t.Error("FetchOne() found = true for missing document")
	}

	if _, _, err := agg.FetchOne(context.Background(), domain.TenantFor("XX"), "ana", "1"); err == nil {
		t.Error("FetchOne() expected error for unknown tenant")
	}
}
