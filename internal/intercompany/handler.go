package intercompany

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/company"
	"github.com/crossbooks/crossbooks/internal/fulfillment"
	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/platform/httpx"
	"github.com/crossbooks/crossbooks/internal/shared"
)

// Handler manages intercompany endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers intercompany routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/intercompany", func(r chi.Router) {
		r.Post("/sales-orders", h.createOrderPair)
		r.Post("/invoices", h.createInvoice)
		r.Post("/receipt-payments", h.createReceiptPayment)
		r.Get("/transactions", h.listTransactions)
		r.Get("/transactions/{id}", h.showTransaction)
		r.Get("/groups/{reference}", h.showGroup)
	})
}

func (h *Handler) createOrderPair(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderPairRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.CreateOrderPair(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	result, err := h.service.CreateInvoice(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) createReceiptPayment(w http.ResponseWriter, r *http.Request) {
	var req CreateReceiptPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	result, err := h.service.CreateReceiptPayment(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "company_id must be a positive integer")
		return
	}
	txns, err := h.service.ListTransactions(r.Context(), companyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": txns})
}

func (h *Handler) showTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return
	}
	txn, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) showGroup(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Reference", "reference must not be empty")
		return
	}
	group, err := h.service.ResolveTransactionGroup(r.Context(), reference)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, group)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *ledger.MissingAccountError
	var exceeds *fulfillment.QuantityExceedsRemainingError
	switch {
	case errors.As(err, &missing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Account", err.Error())
	case errors.As(err, &exceeds):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Quantity Exceeds Remaining", err.Error())
	case errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, billing.ErrNotFound),
		errors.Is(err, company.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCompanyMismatch),
		errors.Is(err, company.ErrSameCompany):
		httpx.Problem(w, http.StatusConflict, "Company Mismatch", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrNothingToInvoice),
		errors.Is(err, fulfillment.ErrNoItemsSelected),
		errors.Is(err, fulfillment.ErrQuantityInvalid),
		errors.Is(err, fulfillment.ErrQuantityNotPositive),
		errors.Is(err, fulfillment.ErrAmountInvalid),
		errors.Is(err, fulfillment.ErrAmountNegative),
		errors.Is(err, fulfillment.ErrLineNotFound):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("intercompany handler", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
