package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("billing: record not found")
	// ErrInvalidTransition rejects a status move outside the allow-list.
	ErrInvalidTransition = errors.New("billing: invalid status transition")
	// ErrInvalidAmount rejects non-positive money amounts.
	ErrInvalidAmount = errors.New("billing: amount must be positive")
	// ErrMissingField rejects a request with a required identifier absent.
	ErrMissingField = errors.New("billing: required field missing")
)

// CreateReceiptRequest records money received against a sales order. Every
// identifier is validated before any write.
type CreateReceiptRequest struct {
	CompanyID       int64           `json:"company_id" validate:"required,gt=0"`
	SalesOrderID    int64           `json:"sales_order_id" validate:"required,gt=0"`
	InvoiceID       *int64          `json:"invoice_id,omitempty"`
	CustomerID      int64           `json:"customer_id" validate:"required,gt=0"`
	DebitAccountID  int64           `json:"debit_account_id" validate:"required,gt=0"`
	CreditAccountID int64           `json:"credit_account_id" validate:"required,gt=0"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	ReceiptDate     time.Time       `json:"receipt_date"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
}

// Validate applies the before-any-write checks.
func (r CreateReceiptRequest) Validate() error {
	switch {
	case r.CompanyID <= 0:
		return errors.Join(ErrMissingField, errors.New("company_id"))
	case r.SalesOrderID <= 0:
		return errors.Join(ErrMissingField, errors.New("sales_order_id"))
	case r.CustomerID <= 0:
		return errors.Join(ErrMissingField, errors.New("customer_id"))
	case r.DebitAccountID <= 0:
		return errors.Join(ErrMissingField, errors.New("debit_account_id"))
	case r.CreditAccountID <= 0:
		return errors.Join(ErrMissingField, errors.New("credit_account_id"))
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// CreatePaymentRequest records money paid against a bill.
type CreatePaymentRequest struct {
	CompanyID       int64           `json:"company_id" validate:"required,gt=0"`
	PurchaseOrderID int64           `json:"purchase_order_id" validate:"required,gt=0"`
	BillID          *int64          `json:"bill_id,omitempty"`
	SupplierID      int64           `json:"supplier_id" validate:"required,gt=0"`
	DebitAccountID  int64           `json:"debit_account_id" validate:"required,gt=0"`
	CreditAccountID int64           `json:"credit_account_id" validate:"required,gt=0"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentDate     time.Time       `json:"payment_date"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
}

// Validate applies the before-any-write checks.
func (r CreatePaymentRequest) Validate() error {
	switch {
	case r.CompanyID <= 0:
		return errors.Join(ErrMissingField, errors.New("company_id"))
	case r.PurchaseOrderID <= 0:
		return errors.Join(ErrMissingField, errors.New("purchase_order_id"))
	case r.SupplierID <= 0:
		return errors.Join(ErrMissingField, errors.New("supplier_id"))
	case r.DebitAccountID <= 0:
		return errors.Join(ErrMissingField, errors.New("debit_account_id"))
	case r.CreditAccountID <= 0:
		return errors.Join(ErrMissingField, errors.New("credit_account_id"))
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ListDocumentsRequest filters invoice/bill listings.
type ListDocumentsRequest struct {
	CompanyID int64
	Status    string
	Limit     int
	Offset    int
}

// CreateReceiptResult carries everything the caller needs after a receipt
// posts: the receipt, its journal entry id, and the invoice balance when an
// invoice was involved.
type CreateReceiptResult struct {
	Receipt        *Receipt `json:"receipt"`
	JournalEntryID int64    `json:"journal_entry_id"`
	Invoice        *Invoice `json:"invoice,omitempty"`
}

// CreatePaymentResult mirrors CreateReceiptResult for the purchase side.
type CreatePaymentResult struct {
	Payment        *Payment `json:"payment"`
	JournalEntryID int64    `json:"journal_entry_id"`
	Bill           *Bill    `json:"bill,omitempty"`
}
