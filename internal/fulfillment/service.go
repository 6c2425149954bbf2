package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/platform/httpx"
)

// OrderSource loads the order lines the engine reasons about.
type OrderSource interface {
	GetSalesOrder(ctx context.Context, id int64) (*orders.SalesOrder, error)
}

// AppliedSource reports quantities already consumed by posted documents
// against a sales order.
type AppliedSource interface {
	AppliedQuantities(ctx context.Context, salesOrderID int64) ([]AppliedLine, error)
}

// Service answers remaining-quantity queries for an order.
type Service struct {
	orders  OrderSource
	applied AppliedSource
}

// NewService builds a Service instance.
func NewService(orderSource OrderSource, appliedSource AppliedSource) *Service {
	return &Service{orders: orderSource, applied: appliedSource}
}

// ComputeRemaining returns the (original, applied, remaining) triple per
// order line.
func (s *Service) ComputeRemaining(ctx context.Context, orderID int64) ([]Remaining, error) {
	order, err := s.orders.GetSalesOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	applied, err := s.applied.AppliedQuantities(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ComputeRemaining(order.Lines, applied), nil
}

// Handler exposes the remaining-quantity query.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers fulfillment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales-orders/{id}/remaining", h.showRemaining)
}

func (h *Handler) showRemaining(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return
	}
	result, err := h.service.ComputeRemaining(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("compute remaining", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": result})
}
