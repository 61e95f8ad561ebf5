package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmazzini/erp-approvals/internal/aggregate"
	"github.com/rmazzini/erp-approvals/internal/chain"
	"github.com/rmazzini/erp-approvals/internal/dispatch"
	"github.com/rmazzini/erp-approvals/internal/domain"
	"github.com/rmazzini/erp-approvals/internal/tenant"
)

// Handlers exposes the aggregation-and-approval core over HTTP for the UI.
type Handlers struct {
	aggregator *aggregate.Aggregator
	resolver   *chain.Resolver
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewHandlers wires the core components into HTTP handlers.
func NewHandlers(agg *aggregate.Aggregator, res *chain.Resolver, dis *dispatch.Dispatcher, logger *slog.Logger) *Handlers {
	return &Handlers{aggregator: agg, resolver: res, dispatcher: dis, logger: logger}
}

// Register mounts the API routes.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/documents", h.listDocuments)
		r.Get("/documents/{tenantID}/{documentID}/eligibility", h.eligibility)
		r.Post("/decisions", h.submitDecision)
	})
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listDocuments fans the query out to every active tenant. Partial and even
// total tenant failure still answer 200: the body's errors list is the
// contract, per-tenant unavailability is not an HTTP error here.
func (h *Handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	approver := r.URL.Query().Get("aprovador")
	if approver == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: aprovador")
		return
	}
	filter := r.URL.Query().Get("numero")

	result := h.aggregator.FetchAll(r.Context(), approver, filter)
	AddLogField(r.Context(), "succeeded", strconv.Itoa(len(result.Succeeded)))
	AddLogField(r.Context(), "failed", strconv.Itoa(len(result.Failed)))

	writeJSON(w, http.StatusOK, result)
}

type eligibilityResponse struct {
	chain.Eligibility
	Status domain.Status `json:"document_status"`
}

func (h *Handlers) eligibility(w http.ResponseWriter, r *http.Request) {
	approver := r.URL.Query().Get("aprovador")
	if approver == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: aprovador")
		return
	}

	ref := refFromPath(chi.URLParam(r, "tenantID"))
	doc, found, err := h.aggregator.FetchOne(r.Context(), ref, approver, chi.URLParam(r, "documentID"))
	if err != nil {
		h.writeFetchError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, eligibilityResponse{
		Eligibility: h.resolver.CanAct(doc.Roster, approver),
		Status:      chain.Status(doc.Roster),
	})
}

type decisionRequest struct {
	TenantID       string          `json:"tenant_id"`
	DocumentID     string          `json:"document_id"`
	Approver       string          `json:"aprovador"`
	Decision       domain.Decision `json:"decision"`
	Comment        string          `json:"comment"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// submitDecision re-fetches the document from its owning tenant so the
// dispatcher validates against the roster as it is now, not as the UI
// rendered it.
func (h *Handlers) submitDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" || req.Approver == "" {
		writeError(w, http.StatusBadRequest, "document_id and aprovador are required")
		return
	}
	if !req.Decision.Valid() {
		writeError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	ref := refFromPath(req.TenantID)
	doc, found, err := h.aggregator.FetchOne(r.Context(), ref, req.Approver, req.DocumentID)
	if err != nil {
		h.writeFetchError(w, r, err)
		return
	}
	if !found {
		subErr := dispatch.NotFound(req.DocumentID)
		writeJSON(w, http.StatusNotFound, errorBody(string(subErr.Kind), subErr.Message))
		return
	}

	ack, err := h.dispatcher.Submit(r.Context(), dispatch.Request{
		Document:       doc,
		Decision:       req.Decision,
		Caller:         req.Approver,
		Comment:        req.Comment,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		AddError(r.Context(), err)
		var subErr *dispatch.SubmitError
		if errors.As(err, &subErr) {
			writeJSON(w, submitStatus(subErr), submitErrorBody(subErr))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ack)
}

func (h *Handlers) writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	if errors.Is(err, tenant.ErrNotFound) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var aggErr *domain.AggregationError
	if errors.As(err, &aggErr) {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":     string(aggErr.Kind),
			"tenant_id": aggErr.TenantID,
			"status":    aggErr.Status,
			"message":   aggErr.Message,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// submitStatus maps dispatch failures onto HTTP statuses the UI can branch
// on: "you can no longer act on this" is distinct from a backend rejection.
func submitStatus(err *dispatch.SubmitError) int {
	switch err.Kind {
	case dispatch.KindNotEligible:
		return http.StatusConflict
	case dispatch.KindDocumentNotFound:
		return http.StatusNotFound
	case dispatch.KindTenant:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func submitErrorBody(err *dispatch.SubmitError) map[string]any {
	body := map[string]any{
		"error":   string(err.Kind),
		"message": err.Error(),
	}
	if err.Reason != "" {
		body["reason"] = string(err.Reason)
	}
	if err.Status != 0 {
		body["upstream_status"] = err.Status
		body["upstream_body"] = err.Body
	}
	return body
}

func refFromPath(tenantID string) domain.TenantRef {
	if tenantID == "" || tenantID == "default" {
		return domain.DefaultTenant()
	}
	return domain.TenantFor(tenantID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(kind, message string) map[string]string {
	return map[string]string{"error": kind, "message": message}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
