package intercompany

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/fulfillment"
	"github.com/crossbooks/crossbooks/internal/orders"
)

var (
	// ErrCompanyMismatch indicates the document does not belong to the
	// requesting company.
	ErrCompanyMismatch = errors.New("intercompany: document belongs to another company")
	// ErrNothingToInvoice indicates every order line is already fully
	// invoiced.
	ErrNothingToInvoice = errors.New("intercompany: no remaining quantity to invoice")
	// ErrInvalidAmount rejects non-positive money amounts.
	ErrInvalidAmount = errors.New("intercompany: amount must be positive")
)

// ProductLine is one product of an order pair request. Quantity and
// UnitPrice are raw external values crossing the parsing boundary.
type ProductLine struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	Description *string `json:"description,omitempty"`
	Quantity    any     `json:"quantity"`
	UnitPrice   any     `json:"unit_price"`
}

// CreateOrderPairRequest creates the mirrored sales/purchase order pair.
type CreateOrderPairRequest struct {
	SourceCompanyID int64         `json:"source_company_id" validate:"required,gt=0"`
	TargetCompanyID int64         `json:"target_company_id" validate:"required,gt=0"`
	ReferenceNumber *string       `json:"reference_number,omitempty"`
	OrderDate       time.Time     `json:"order_date"`
	Products        []ProductLine `json:"products" validate:"required,min=1,dive"`
}

// OrderPairResult returns both created documents plus the shared reference
// for client-side tracking.
type OrderPairResult struct {
	SalesOrder      *orders.SalesOrder    `json:"sales_order"`
	PurchaseOrder   *orders.PurchaseOrder `json:"purchase_order"`
	ReferenceNumber string                `json:"reference_number"`
	TransactionID   int64                 `json:"transaction_id"`
}

// CreateInvoiceRequest invoices a sales order across the pair. An empty
// Selections list means "invoice everything still remaining"; a non-empty
// list is a partial invoice validated line by line.
type CreateInvoiceRequest struct {
	SalesOrderID   int64                   `json:"sales_order_id" validate:"required,gt=0"`
	CompanyID      int64                   `json:"company_id" validate:"required,gt=0"`
	Selections     []fulfillment.Selection `json:"selections,omitempty"`
	DueDate        time.Time               `json:"due_date"`
	IdempotencyKey string                  `json:"-"`
}

// InvoicePairResult returns the mirrored invoice/bill pair with the posted
// journal entries.
type InvoicePairResult struct {
	Invoice         *billing.Invoice `json:"invoice"`
	Bill            *billing.Bill    `json:"bill"`
	ReferenceNumber string           `json:"reference_number"`
	Entries         *PairedEntries   `json:"journal_entries"`
}

// CreateReceiptPaymentRequest settles (part of) an intercompany invoice.
type CreateReceiptPaymentRequest struct {
	InvoiceID      int64           `json:"invoice_id" validate:"required,gt=0"`
	CompanyID      int64           `json:"company_id" validate:"required,gt=0"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	IdempotencyKey string          `json:"-"`
}

// ReceiptPaymentResult returns the receipt/payment pair, the journal entry
// ids and the updated invoice balance.
type ReceiptPaymentResult struct {
	Receipt *billing.Receipt `json:"receipt"`
	Payment *billing.Payment `json:"payment"`
	Entries *PaymentPair     `json:"journal_entries"`
	Invoice *billing.Invoice `json:"invoice"`
}
