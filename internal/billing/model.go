// Package billing manages invoices, bills, receipts and payments, and keeps
// derived payment totals (amountPaid, balanceDue, status) consistent with
// the receipts and payments posted against each document.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentStatus is the shared invoice/bill lifecycle.
type DocumentStatus string

const (
	StatusDraft   DocumentStatus = "DRAFT"
	StatusOpen    DocumentStatus = "OPEN"
	StatusPartial DocumentStatus = "PARTIAL"
	StatusPaid    DocumentStatus = "PAID"
	StatusOverdue DocumentStatus = "OVERDUE"
	StatusVoid    DocumentStatus = "VOID"
)

// documentTransitions is the explicit allow-list for manual moves. Payment
// recomputation bypasses it through PaymentTotals, which never touches
// terminal statuses.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	StatusDraft:   {StatusOpen, StatusVoid},
	StatusOpen:    {StatusPartial, StatusPaid, StatusOverdue, StatusVoid},
	StatusPartial: {StatusPaid, StatusOverdue, StatusVoid},
	StatusOverdue: {StatusPartial, StatusPaid, StatusVoid},
}

// CanTransition reports whether moving to next is allowed.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	for _, allowed := range documentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether payment recomputation must leave the status
// alone.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusVoid
}

// Invoice bills a customer for (part of) a sales order. BalanceDue is
// derived from Total and AmountPaid and recomputed on every receipt.
type Invoice struct {
	ID              int64           `json:"id"`
	CompanyID       int64           `json:"company_id"`
	CustomerID      int64           `json:"customer_id"`
	SalesOrderID    int64           `json:"sales_order_id"`
	DocNumber       string          `json:"doc_number"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	DueDate         time.Time       `json:"due_date"`
	Status          DocumentStatus  `json:"status"`
	Total           decimal.Decimal `json:"total"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	BalanceDue      decimal.Decimal `json:"balance_due"`
	JournalEntryID  *int64          `json:"journal_entry_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []InvoiceItem   `json:"items,omitempty"`
}

// InvoiceItem references its source order line through SOItemID; legacy rows
// may lack it, in which case product matching is the fallback.
type InvoiceItem struct {
	ID           int64           `json:"id"`
	InvoiceID    int64           `json:"invoice_id"`
	ProductID    int64           `json:"product_id"`
	Description  *string         `json:"description,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Amount       decimal.Decimal `json:"amount"`
	SOItemID     *int64          `json:"so_item_id,omitempty"`
	PaidQuantity decimal.Decimal `json:"paid_quantity"`
	FullyPaid    bool            `json:"fully_paid"`
}

// Bill is the purchase-side mirror of an invoice.
type Bill struct {
	ID              int64           `json:"id"`
	CompanyID       int64           `json:"company_id"`
	SupplierID      int64           `json:"supplier_id"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	DocNumber       string          `json:"doc_number"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	BillDate        time.Time       `json:"bill_date"`
	DueDate         time.Time       `json:"due_date"`
	Status          DocumentStatus  `json:"status"`
	Total           decimal.Decimal `json:"total"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	BalanceDue      decimal.Decimal `json:"balance_due"`
	JournalEntryID  *int64          `json:"journal_entry_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []BillItem      `json:"items,omitempty"`
}

// BillItem mirrors the invoice item data for the purchase side.
type BillItem struct {
	ID          int64           `json:"id"`
	BillID      int64           `json:"bill_id"`
	ProductID   int64           `json:"product_id"`
	Description *string         `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	POItemID    *int64          `json:"po_item_id,omitempty"`
}

// Receipt records money received against an invoice. A receipt without a
// posted journal entry is an invalid state, so JournalEntryID is required.
type Receipt struct {
	ID              int64           `json:"id"`
	CompanyID       int64           `json:"company_id"`
	SalesOrderID    int64           `json:"sales_order_id"`
	InvoiceID       *int64          `json:"invoice_id,omitempty"`
	CustomerID      int64           `json:"customer_id"`
	DocNumber       string          `json:"doc_number"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	DebitAccountID  int64           `json:"debit_account_id"`
	CreditAccountID int64           `json:"credit_account_id"`
	JournalEntryID  int64           `json:"journal_entry_id"`
	ReceiptDate     time.Time       `json:"receipt_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Payment records money paid against a bill.
type Payment struct {
	ID              int64           `json:"id"`
	CompanyID       int64           `json:"company_id"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	BillID          *int64          `json:"bill_id,omitempty"`
	SupplierID      int64           `json:"supplier_id"`
	DocNumber       string          `json:"doc_number"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	DebitAccountID  int64           `json:"debit_account_id"`
	CreditAccountID int64           `json:"credit_account_id"`
	JournalEntryID  int64           `json:"journal_entry_id"`
	PaymentDate     time.Time       `json:"payment_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AgingSummary groups a company's outstanding invoice balances by days
// past due.
type AgingSummary struct {
	CompanyID int64           `json:"company_id"`
	AsOf      time.Time       `json:"as_of"`
	Current   decimal.Decimal `json:"current"`
	Days30    decimal.Decimal `json:"days_1_30"`
	Days60    decimal.Decimal `json:"days_31_60"`
	Days90    decimal.Decimal `json:"days_61_90"`
	Over90    decimal.Decimal `json:"days_over_90"`
	Total     decimal.Decimal `json:"total"`
}

// Product carries the display name hydrated onto processed lines.
type Product struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

// PaymentTotals recomputes the derived payment state after a money event.
// balanceDue = total - amountPaid; the status becomes PAID when fully
// covered, PARTIAL when anything is paid, and is otherwise left unchanged.
// Terminal statuses are never downgraded.
func PaymentTotals(total, amountPaid decimal.Decimal, current DocumentStatus) (decimal.Decimal, DocumentStatus) {
	balanceDue := total.Sub(amountPaid)
	if current.IsTerminal() {
		return balanceDue, current
	}
	switch {
	case amountPaid.GreaterThanOrEqual(total) && total.IsPositive():
		return balanceDue, StatusPaid
	case amountPaid.IsPositive():
		return balanceDue, StatusPartial
	default:
		return balanceDue, current
	}
}
