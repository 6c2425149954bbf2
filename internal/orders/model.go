// Package orders manages sales orders and purchase orders, including the
// mirrored pairs created by the intercompany workflow.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesOrderStatus enumerates sales order lifecycle values. PARTIAL and PAID
// track money received against the order; terminal statuses are never
// downgraded by payment recomputation.
type SalesOrderStatus string

const (
	SalesOrderStatusDraft     SalesOrderStatus = "DRAFT"
	SalesOrderStatusConfirmed SalesOrderStatus = "CONFIRMED"
	SalesOrderStatusPartial   SalesOrderStatus = "PARTIAL"
	SalesOrderStatusPaid      SalesOrderStatus = "PAID"
	SalesOrderStatusCompleted SalesOrderStatus = "COMPLETED"
	SalesOrderStatusCancelled SalesOrderStatus = "CANCELLED"
	SalesOrderStatusClosed    SalesOrderStatus = "CLOSED"
	SalesOrderStatusReturned  SalesOrderStatus = "RETURNED"
)

// PurchaseOrderStatus enumerates purchase order lifecycle values.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft      PurchaseOrderStatus = "DRAFT"
	PurchaseOrderStatusSent       PurchaseOrderStatus = "SENT"
	PurchaseOrderStatusApproved   PurchaseOrderStatus = "APPROVED"
	PurchaseOrderStatusProcessing PurchaseOrderStatus = "PROCESSING"
	PurchaseOrderStatusReceived   PurchaseOrderStatus = "RECEIVED"
	PurchaseOrderStatusCancelled  PurchaseOrderStatus = "CANCELLED"
)

// salesOrderTransitions is the explicit allow-list; anything absent fails
// with ErrInvalidTransition.
var salesOrderTransitions = map[SalesOrderStatus][]SalesOrderStatus{
	SalesOrderStatusDraft:     {SalesOrderStatusConfirmed, SalesOrderStatusCancelled},
	SalesOrderStatusConfirmed: {SalesOrderStatusPartial, SalesOrderStatusPaid, SalesOrderStatusCompleted, SalesOrderStatusCancelled},
	SalesOrderStatusPartial:   {SalesOrderStatusPaid, SalesOrderStatusCompleted, SalesOrderStatusCancelled},
	SalesOrderStatusPaid:      {SalesOrderStatusCompleted, SalesOrderStatusClosed},
	SalesOrderStatusCompleted: {SalesOrderStatusClosed, SalesOrderStatusReturned},
}

var purchaseOrderTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	PurchaseOrderStatusDraft:      {PurchaseOrderStatusSent, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusSent:       {PurchaseOrderStatusApproved, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusApproved:   {PurchaseOrderStatusProcessing, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusProcessing: {PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled},
}

// CanTransition reports whether moving to next is allowed.
func (s SalesOrderStatus) CanTransition(next SalesOrderStatus) bool {
	for _, allowed := range salesOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether payment recomputation must leave the status
// alone.
func (s SalesOrderStatus) IsTerminal() bool {
	switch s {
	case SalesOrderStatusCancelled, SalesOrderStatusClosed, SalesOrderStatusReturned:
		return true
	}
	return false
}

// CanTransition reports whether moving to next is allowed.
func (s PurchaseOrderStatus) CanTransition(next PurchaseOrderStatus) bool {
	for _, allowed := range purchaseOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SalesOrder is the order header. ReferenceNumber is shared with the
// mirrored purchase order of an intercompany pair; it correlates, it is not
// a foreign key.
type SalesOrder struct {
	ID              int64            `json:"id"`
	CompanyID       int64            `json:"company_id"`
	CustomerID      int64            `json:"customer_id"`
	DocNumber       string           `json:"doc_number"`
	ReferenceNumber *string          `json:"reference_number,omitempty"`
	OrderDate       time.Time        `json:"order_date"`
	Status          SalesOrderStatus `json:"status"`
	Total           decimal.Decimal  `json:"total"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Lines           []SalesOrderLine `json:"lines,omitempty"`
}

// SalesOrderLine carries cumulative invoiced-quantity tracking for partial
// fulfillment.
type SalesOrderLine struct {
	ID               int64           `json:"id"`
	SalesOrderID     int64           `json:"sales_order_id"`
	ProductID        int64           `json:"product_id"`
	Description      *string         `json:"description,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Amount           decimal.Decimal `json:"amount"`
	InvoicedQuantity decimal.Decimal `json:"invoiced_quantity"`
	FullyInvoiced    bool            `json:"fully_invoiced"`
}

// PurchaseOrder is the purchase side header.
type PurchaseOrder struct {
	ID              int64               `json:"id"`
	CompanyID       int64               `json:"company_id"`
	SupplierID      int64               `json:"supplier_id"`
	DocNumber       string              `json:"doc_number"`
	ReferenceNumber *string             `json:"reference_number,omitempty"`
	OrderDate       time.Time           `json:"order_date"`
	Status          PurchaseOrderStatus `json:"status"`
	Total           decimal.Decimal     `json:"total"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Lines           []PurchaseOrderLine `json:"lines,omitempty"`
}

// PurchaseOrderLine mirrors the sales side line data.
type PurchaseOrderLine struct {
	ID              int64           `json:"id"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	ProductID       int64           `json:"product_id"`
	Description     *string         `json:"description,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Amount          decimal.Decimal `json:"amount"`
}
