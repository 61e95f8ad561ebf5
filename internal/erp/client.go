// Package erp is the HTTP client for a single Protheus-style ERP backend.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rmazzini/erp-approvals/internal/domain"
	"github.com/rmazzini/erp-approvals/internal/tenant"
)

const (
	defaultQueryPath  = "/rest/aprovacao/documentos"
	defaultActionPath = "/rest/aprovacao/acao"
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client talks to one tenant's backend with that tenant's credentials.
type Client struct {
	baseURL    string
	queryPath  string
	actionPath string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a client scoped to the given tenant.
func NewClient(t *tenant.Tenant, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(t.BaseURL, "/"),
		queryPath:  t.QueryPath,
		actionPath: t.ActionPath,
		username:   t.Username,
		password:   t.Password,
		httpClient: http.DefaultClient,
	}
	if c.queryPath == "" {
		c.queryPath = defaultQueryPath
	}
	if c.actionPath == "" {
		c.actionPath = defaultActionPath
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryDocuments fetches the documents pending the given approver. The
// optional filter narrows results to a document number.
func (c *Client) QueryDocuments(ctx context.Context, approver, filter string) ([]domain.Document, error) {
	q := url.Values{}
	q.Set("aprovador", approver)
	if filter != "" {
		q.Set("numero", filter)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.queryPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var envelope documentsEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	docs := make([]domain.Document, 0, len(envelope.Documentos))
	for _, wd := range envelope.Documentos {
		docs = append(docs, wd.toDomain())
	}
	return docs, nil
}

// ActionRequest is one approve/reject write against the backend.
type ActionRequest struct {
	Kind       domain.Kind
	DocumentID string
	ApproverID string
	Decision   domain.Decision
	Comment    string
	Branch     string
}

// SubmitAction issues the single write call for an approval decision. Any
// non-2xx response is a hard failure carrying the upstream status and body.
func (c *Client) SubmitAction(ctx context.Context, req ActionRequest) error {
	comment := req.Comment
	if comment == "" {
		comment = req.Decision.DefaultComment()
	}

	payload := actionPayload{
		Tipo:       string(req.Kind),
		Documento:  strings.TrimSpace(req.DocumentID),
		Aprovador:  req.ApproverID,
		Status:     req.Decision.Keyword(),
		Observacao: comment,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.actionPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	// Branch scoping: company code 01 plus the bare branch code, with any
	// free-text description already stripped.
	httpReq.Header.Set("TenantId", "01,"+domain.NormalizeBranch(req.Branch))
	httpReq.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return &domain.UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}
