package domain

import "strings"

// Kind is the document type as the ERP reports it.
type Kind string

const (
	// KindPurchaseOrder is a pedido de compra.
	KindPurchaseOrder Kind = "PC"

	// KindPurchaseRequest is a solicitação de compra.
	KindPurchaseRequest Kind = "SC"

	// KindContract is a contrato de fornecimento.
	KindContract Kind = "CT"
)

// Valid reports whether the kind is one of the known document types.
func (k Kind) Valid() bool {
	switch k {
	case KindPurchaseOrder, KindPurchaseRequest, KindContract:
		return true
	}
	return false
}

// EntryState is the state of a single roster entry.
type EntryState string

const (
	EntryPending  EntryState = "pending"
	EntryApproved EntryState = "approved"
	EntryRejected EntryState = "rejected"
)

// Status is the derived document-level approval status. It is never stored;
// it is recomputed from the roster on every evaluation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// RosterEntry is one row in a document's ordered approval chain. The three
// identifier fields are redundant upstream representations of the same
// approver and none is guaranteed to equal the caller's login exactly.
type RosterEntry struct {
	// Level is the upstream level code, kept for diagnostics. Chain order
	// is the slice order, not this value.
	Level string `json:"level"`

	// ApproverID is the machine identifier the backend expects on writes.
	ApproverID string `json:"approver_id"`

	// Identifier is the secondary machine identifier (often a short login).
	Identifier string `json:"identifier"`

	// DisplayName is the human-readable approver name.
	DisplayName string `json:"display_name"`

	State   EntryState `json:"state"`
	Remarks string     `json:"remarks,omitempty"`
}

// LineItem is one line of a document, carried for display only.
type LineItem struct {
	Item        string  `json:"item"`
	Product     string  `json:"product"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// Document is the unit of approval. TenantID is provenance added by the
// aggregator; it is not present in the raw upstream payload.
type Document struct {
	TenantID string        `json:"tenant_id"`
	ID       string        `json:"id"`
	Kind     Kind          `json:"kind"`
	Branch   string        `json:"branch"`
	Total    float64       `json:"total"`
	Items    []LineItem    `json:"items,omitempty"`
	Roster   []RosterEntry `json:"roster"`
}

// Key returns the cross-tenant comparison key. Document ids are only unique
// within a tenant and may carry incidental whitespace.
func (d Document) Key() DocumentKey {
	return DocumentKey{TenantID: d.TenantID, DocumentID: strings.TrimSpace(d.ID)}
}

// BranchCode returns the branch/location code with any trailing free-text
// description stripped, suitable for routing headers.
func (d Document) BranchCode() string {
	return NormalizeBranch(d.Branch)
}

// Ref returns the tenant reference used to route actions on this document.
func (d Document) Ref() TenantRef {
	if d.TenantID == "" {
		return DefaultTenant()
	}
	return TenantFor(d.TenantID)
}

// DocumentKey identifies a document across tenants.
type DocumentKey struct {
	TenantID   string
	DocumentID string
}

// NormalizeBranch strips the free-text description some backends embed after
// the branch code, e.g. "0101 - MATRIZ SP" -> "0101".
func NormalizeBranch(branch string) string {
	code, _, _ := strings.Cut(branch, "-")
	return strings.TrimSpace(code)
}

// TenantRef identifies the backend that owns a document: either an explicit
// tenant id or the deployment's default tenant. The zero value is the
// default-tenant reference, matching documents that carry no provenance tag.
type TenantRef struct {
	id string
}

// TenantFor returns a reference to an explicit tenant.
func TenantFor(id string) TenantRef { return TenantRef{id: id} }

// DefaultTenant returns the single-tenant fallback reference.
func DefaultTenant() TenantRef { return TenantRef{} }

// IsDefault reports whether the reference is the default-tenant fallback.
func (r TenantRef) IsDefault() bool { return r.id == "" }

// ID returns the explicit tenant id; empty for the default reference.
func (r TenantRef) ID() string { return r.id }

func (r TenantRef) String() string {
	if r.IsDefault() {
		return "default"
	}
	return r.id
}

// Decision is an approve/reject action.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether the decision is one of the two known actions.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Keyword returns the STATUS keyword the action endpoint expects.
func (d Decision) Keyword() string {
	if d == DecisionReject {
		return "REJEICAO"
	}
	return "APROVACAO"
}

// DefaultComment returns the comment used when the caller supplies none.
func (d Decision) DefaultComment() string {
	if d == DecisionReject {
		return "Rejeitado"
	}
	return "Aprovado"
}

// AggregateResult is the merged output of one fan-out. Partial failure is a
// valid outcome: Documents may be non-empty while Errors is non-empty.
type AggregateResult struct {
	Documents []Document          `json:"documents"`
	Succeeded []string            `json:"succeeded"`
	Failed    []string            `json:"failed"`
	Errors    []*AggregationError `json:"errors,omitempty"`
}
