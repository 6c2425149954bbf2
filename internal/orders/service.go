package orders

import (
	"context"
	"fmt"
	"time"
)

// Service handles order business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateSalesOrder persists a sales order with its lines in one transaction.
func (s *Service) CreateSalesOrder(ctx context.Context, req CreateSalesOrderRequest) (*SalesOrder, error) {
	total, amounts, err := lineAmounts(req.Lines)
	if err != nil {
		return nil, err
	}
	orderDate := req.OrderDate
	if orderDate.IsZero() {
		orderDate = s.now()
	}
	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Store) error {
		id, err := BuildSalesOrder(ctx, tx, req, SalesOrderStatusDraft, total, amounts, orderDate)
		if err != nil {
			return err
		}
		orderID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetSalesOrder(ctx, orderID)
}

// CreatePurchaseOrder persists a purchase order with its lines in one
// transaction.
func (s *Service) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrder, error) {
	total, amounts, err := lineAmounts(req.Lines)
	if err != nil {
		return nil, err
	}
	orderDate := req.OrderDate
	if orderDate.IsZero() {
		orderDate = s.now()
	}
	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Store) error {
		id, err := BuildPurchaseOrder(ctx, tx, req, PurchaseOrderStatusDraft, total, amounts, orderDate)
		if err != nil {
			return err
		}
		orderID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetPurchaseOrder(ctx, orderID)
}

// TransitionSalesOrder moves an order along the allow-listed lifecycle.
func (s *Service) TransitionSalesOrder(ctx context.Context, id int64, next SalesOrderStatus) (*SalesOrder, error) {
	existing, err := s.repo.GetSalesOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, next)
	}
	if err := s.repo.SetSalesOrderStatus(ctx, id, next); err != nil {
		return nil, err
	}
	return s.repo.GetSalesOrder(ctx, id)
}

// TransitionPurchaseOrder moves a purchase order along the allow-listed
// lifecycle.
func (s *Service) TransitionPurchaseOrder(ctx context.Context, id int64, next PurchaseOrderStatus) (*PurchaseOrder, error) {
	existing, err := s.repo.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, next)
	}
	if err := s.repo.SetPurchaseOrderStatus(ctx, id, next); err != nil {
		return nil, err
	}
	return s.repo.GetPurchaseOrder(ctx, id)
}

// GetSalesOrder returns one sales order with lines.
func (s *Service) GetSalesOrder(ctx context.Context, id int64) (*SalesOrder, error) {
	return s.repo.GetSalesOrder(ctx, id)
}

// GetPurchaseOrder returns one purchase order with lines.
func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	return s.repo.GetPurchaseOrder(ctx, id)
}

// ListSalesOrders lists sales orders for a company.
func (s *Service) ListSalesOrders(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, error) {
	return s.repo.ListSalesOrders(ctx, req)
}

// ListPurchaseOrders lists purchase orders for a company.
func (s *Service) ListPurchaseOrders(ctx context.Context, req ListOrdersRequest) ([]PurchaseOrder, error) {
	return s.repo.ListPurchaseOrders(ctx, req)
}
