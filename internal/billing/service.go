package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/shared"
)

// AuditPort records billing events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles billing business logic. Money events span billing rows,
// the order's payment status and the ledger, so writes go through TxRunner.
type Service struct {
	tx     TxRunner
	reader Store
	audit  AuditPort
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(tx TxRunner, reader Store, audit AuditPort) *Service {
	return &Service{tx: tx, reader: reader, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateReceipt validates, posts the journal entry (debit cash/bank, credit
// receivable), persists the receipt referencing the posted entry, then
// recomputes the invoice balance and the parent order's payment status. The
// whole sequence is one transaction.
func (s *Service) CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*CreateReceiptResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	receiptDate := req.ReceiptDate
	if receiptDate.IsZero() {
		receiptDate = now
	}
	var result CreateReceiptResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx Stores) error {
		order, err := tx.Orders.GetSalesOrder(ctx, req.SalesOrderID)
		if err != nil {
			return err
		}
		docNumber, err := tx.Billing.GenerateReceiptNumber(ctx, req.CompanyID, receiptDate)
		if err != nil {
			return err
		}
		entry, err := ledger.PostEntry(ctx, tx.Ledger, ledger.PostingInput{
			CompanyID:   req.CompanyID,
			Description: fmt.Sprintf("Receipt %s against %s", docNumber, order.DocNumber),
			EntryDate:   receiptDate,
			SourceType:  "receipt",
			Lines: []ledger.PostingLineInput{
				{AccountID: req.DebitAccountID, Debit: req.Amount},
				{AccountID: req.CreditAccountID, Credit: req.Amount},
			},
		}, now)
		if err != nil {
			return err
		}
		receipt := &Receipt{
			CompanyID:       req.CompanyID,
			SalesOrderID:    req.SalesOrderID,
			InvoiceID:       req.InvoiceID,
			CustomerID:      req.CustomerID,
			DocNumber:       docNumber,
			ReferenceNumber: req.ReferenceNumber,
			Amount:          req.Amount,
			PaymentMethod:   req.PaymentMethod,
			DebitAccountID:  req.DebitAccountID,
			CreditAccountID: req.CreditAccountID,
			JournalEntryID:  entry.ID,
			ReceiptDate:     receiptDate,
		}
		receiptID, err := tx.Billing.InsertReceipt(ctx, receipt)
		if err != nil {
			return err
		}
		receipt.ID = receiptID

		if req.InvoiceID != nil {
			invoice, err := SettleInvoice(ctx, tx.Billing, *req.InvoiceID)
			if err != nil {
				return err
			}
			result.Invoice = invoice
		}
		if err := UpdateOrderPaymentStatus(ctx, tx.Billing, tx.Orders, order); err != nil {
			return err
		}
		result.Receipt = receipt
		result.JournalEntryID = entry.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "receipt.create", result.Receipt.ID, result.Receipt.DocNumber)
	return &result, nil
}

// CreatePayment is the purchase-side mirror of CreateReceipt: debit payable,
// credit cash, then recompute the bill balance.
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}
	var result CreatePaymentResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx Stores) error {
		order, err := tx.Orders.GetPurchaseOrder(ctx, req.PurchaseOrderID)
		if err != nil {
			return err
		}
		docNumber, err := tx.Billing.GeneratePaymentNumber(ctx, req.CompanyID, paymentDate)
		if err != nil {
			return err
		}
		entry, err := ledger.PostEntry(ctx, tx.Ledger, ledger.PostingInput{
			CompanyID:   req.CompanyID,
			Description: fmt.Sprintf("Payment %s against %s", docNumber, order.DocNumber),
			EntryDate:   paymentDate,
			SourceType:  "payment",
			Lines: []ledger.PostingLineInput{
				{AccountID: req.DebitAccountID, Debit: req.Amount},
				{AccountID: req.CreditAccountID, Credit: req.Amount},
			},
		}, now)
		if err != nil {
			return err
		}
		payment := &Payment{
			CompanyID:       req.CompanyID,
			PurchaseOrderID: req.PurchaseOrderID,
			BillID:          req.BillID,
			SupplierID:      req.SupplierID,
			DocNumber:       docNumber,
			ReferenceNumber: req.ReferenceNumber,
			Amount:          req.Amount,
			PaymentMethod:   req.PaymentMethod,
			DebitAccountID:  req.DebitAccountID,
			CreditAccountID: req.CreditAccountID,
			JournalEntryID:  entry.ID,
			PaymentDate:     paymentDate,
		}
		paymentID, err := tx.Billing.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = paymentID

		if req.BillID != nil {
			bill, err := SettleBill(ctx, tx.Billing, *req.BillID)
			if err != nil {
				return err
			}
			result.Bill = bill
		}
		result.Payment = payment
		result.JournalEntryID = entry.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "payment.create", result.Payment.ID, result.Payment.DocNumber)
	return &result, nil
}

// VoidInvoice moves an invoice to VOID through the transition allow-list.
func (s *Service) VoidInvoice(ctx context.Context, id int64) (*Invoice, error) {
	var voided *Invoice
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx Stores) error {
		invoice, err := tx.Billing.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if !invoice.Status.CanTransition(StatusVoid) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, invoice.Status, StatusVoid)
		}
		if err := tx.Billing.SetInvoiceStatus(ctx, id, StatusVoid); err != nil {
			return err
		}
		invoice.Status = StatusVoid
		voided = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "invoice.void", voided.ID, voided.DocNumber)
	return voided, nil
}

// GetInvoice returns one invoice with items.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return s.reader.GetInvoice(ctx, id)
}

// GetBill returns one bill with items.
func (s *Service) GetBill(ctx context.Context, id int64) (*Bill, error) {
	return s.reader.GetBill(ctx, id)
}

// ListInvoices lists invoices for a company.
func (s *Service) ListInvoices(ctx context.Context, req ListDocumentsRequest) ([]Invoice, error) {
	return s.reader.ListInvoices(ctx, req)
}

// ListBills lists bills for a company.
func (s *Service) ListBills(ctx context.Context, req ListDocumentsRequest) ([]Bill, error) {
	return s.reader.ListBills(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, number string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "billing_document",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     map[string]any{"doc_number": number},
		At:       s.now(),
	})
}

// SettleInvoice recomputes an invoice's derived payment state from the
// receipts recorded against it. Exported for callers holding their own
// transaction.
func SettleInvoice(ctx context.Context, tx Store, invoiceID int64) (*Invoice, error) {
	invoice, err := tx.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	paid, err := tx.SumReceiptsForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	balanceDue, status := PaymentTotals(invoice.Total, paid, invoice.Status)
	if err := tx.SetInvoiceTotals(ctx, invoiceID, paid, balanceDue, status); err != nil {
		return nil, err
	}
	invoice.AmountPaid = paid
	invoice.BalanceDue = balanceDue
	invoice.Status = status
	return invoice, nil
}

// SettleBill is the purchase-side equivalent of SettleInvoice.
func SettleBill(ctx context.Context, tx Store, billID int64) (*Bill, error) {
	bill, err := tx.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	paid, err := tx.SumPaymentsForBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	balanceDue, status := PaymentTotals(bill.Total, paid, bill.Status)
	if err := tx.SetBillTotals(ctx, billID, paid, balanceDue, status); err != nil {
		return nil, err
	}
	bill.AmountPaid = paid
	bill.BalanceDue = balanceDue
	bill.Status = status
	return bill, nil
}

// UpdateOrderPaymentStatus sums all receipts tied to an order and moves the
// order to PAID or PARTIAL accordingly. Terminal statuses are never
// downgraded; anything unpaid stays as it is.
func UpdateOrderPaymentStatus(ctx context.Context, bst Store, ost orders.Store, order *orders.SalesOrder) error {
	if order.Status.IsTerminal() {
		return nil
	}
	totalPaid, err := bst.SumReceiptsForOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	var next orders.SalesOrderStatus
	switch {
	case totalPaid.GreaterThanOrEqual(order.Total) && order.Total.IsPositive():
		next = orders.SalesOrderStatusPaid
	case totalPaid.IsPositive() && totalPaid.LessThan(order.Total):
		next = orders.SalesOrderStatusPartial
	default:
		return nil
	}
	if next == order.Status {
		return nil
	}
	if err := ost.SetSalesOrderStatus(ctx, order.ID, next); err != nil {
		return err
	}
	order.Status = next
	return nil
}

// AgingSummary groups the company's outstanding invoice balances into
// days-past-due buckets as of the given date. Paid, void and draft
// invoices never appear; the store already filters them out.
func (s *Service) AgingSummary(ctx context.Context, companyID int64, asOf time.Time) (*AgingSummary, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	invoices, err := s.reader.OutstandingInvoices(ctx, companyID)
	if err != nil {
		return nil, err
	}
	summary := &AgingSummary{
		CompanyID: companyID,
		AsOf:      asOf,
		Current:   decimal.Zero,
		Days30:    decimal.Zero,
		Days60:    decimal.Zero,
		Days90:    decimal.Zero,
		Over90:    decimal.Zero,
		Total:     decimal.Zero,
	}
	for _, inv := range invoices {
		days := int(asOf.Sub(inv.DueDate).Hours() / 24)
		switch {
		case days <= 0:
			summary.Current = summary.Current.Add(inv.BalanceDue)
		case days <= 30:
			summary.Days30 = summary.Days30.Add(inv.BalanceDue)
		case days <= 60:
			summary.Days60 = summary.Days60.Add(inv.BalanceDue)
		case days <= 90:
			summary.Days90 = summary.Days90.Add(inv.BalanceDue)
		default:
			summary.Over90 = summary.Over90.Add(inv.BalanceDue)
		}
		summary.Total = summary.Total.Add(inv.BalanceDue)
	}
	return summary, nil
}
