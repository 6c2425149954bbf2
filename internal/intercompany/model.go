// Package intercompany pairs mirrored documents across two companies' books:
// order pairs, invoice/bill pairs and the balanced journal entries behind
// them, correlated by a shared reference number.
package intercompany

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/orders"
)

// Status is the pairing lifecycle. PaymentStatus moves independently.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus tracks money flow against the paired invoice.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// paymentStatusFor derives the pairing record's payment state from the
// invoice lifecycle. The two move independently: the pairing record never
// regresses when the invoice is voided downstream.
func paymentStatusFor(status billing.DocumentStatus) PaymentStatus {
	switch status {
	case billing.StatusPaid:
		return PaymentPaid
	case billing.StatusPartial:
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// Transaction is the cross-company pairing record. Once Status is COMPLETED
// both journal entry references are non-null and the two companies' entries
// mirror each other.
type Transaction struct {
	ID                   int64           `json:"id"`
	SourceCompanyID      int64           `json:"source_company_id"`
	TargetCompanyID      int64           `json:"target_company_id"`
	ReferenceNumber      string          `json:"reference_number"`
	Amount               decimal.Decimal `json:"amount"`
	SourceOrderID        *int64          `json:"source_order_id,omitempty"`
	TargetOrderID        *int64          `json:"target_order_id,omitempty"`
	SourceInvoiceID      *int64          `json:"source_invoice_id,omitempty"`
	TargetBillID         *int64          `json:"target_bill_id,omitempty"`
	SourceReceiptID      *int64          `json:"source_receipt_id,omitempty"`
	TargetPaymentID      *int64          `json:"target_payment_id,omitempty"`
	SourceJournalEntryID *int64          `json:"source_journal_entry_id,omitempty"`
	TargetJournalEntryID *int64          `json:"target_journal_entry_id,omitempty"`
	Status               Status          `json:"status"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// TransactionGroup is every document linked to one reference number, across
// both companies' books. It is the audit and recovery view of one logical
// business event.
type TransactionGroup struct {
	ReferenceNumber string                 `json:"reference_number"`
	SalesOrders     []orders.SalesOrder    `json:"sales_orders"`
	PurchaseOrders  []orders.PurchaseOrder `json:"purchase_orders"`
	Invoices        []billing.Invoice      `json:"invoices"`
	Bills           []billing.Bill         `json:"bills"`
	Receipts        []billing.Receipt      `json:"receipts"`
	Payments        []billing.Payment      `json:"payments"`
}
