package intercompany

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/company"
	"github.com/crossbooks/crossbooks/internal/fulfillment"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/shared"
)

// AuditPort records intercompany events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics observes workflow outcomes. Implementations must be nil-safe on
// the service side; observability wires the prometheus-backed one.
type Metrics interface {
	MatchHit(strategy string)
	PairCompleted()
}

// IdempotencyPort guards retried write operations. A nil port disables the
// guard.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, operation string) error
	Delete(ctx context.Context, key string) error
}

// DefaultInvoiceTimeout bounds the paired invoice workflow.
const DefaultInvoiceTimeout = 60 * time.Second

// ServiceConfig wires the service's collaborators.
type ServiceConfig struct {
	Tx             TxRunner
	Transactions   Store
	Companies      company.Store
	Orders         orders.Store
	Billing        billing.Store
	Cache          *Cache
	Audit          AuditPort
	Metrics        Metrics
	Idempotency    IdempotencyPort
	InvoiceTimeout time.Duration
}

// Service orchestrates the intercompany workflows: mirrored order pairs,
// invoice/bill pairs with their journal entries, and receipt/payment pairs.
type Service struct {
	tx             TxRunner
	ic             Store
	companies      company.Store
	ordersReader   orders.Store
	billingReader  billing.Store
	cache          *Cache
	audit          AuditPort
	metrics        Metrics
	idempotency    IdempotencyPort
	invoiceTimeout time.Duration
	now            func() time.Time
}

// NewService builds a Service instance.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.InvoiceTimeout
	if timeout <= 0 {
		timeout = DefaultInvoiceTimeout
	}
	return &Service{
		tx:             cfg.Tx,
		ic:             cfg.Transactions,
		companies:      cfg.Companies,
		ordersReader:   cfg.Orders,
		billingReader:  cfg.Billing,
		cache:          cfg.Cache,
		audit:          cfg.Audit,
		metrics:        cfg.Metrics,
		idempotency:    cfg.Idempotency,
		invoiceTimeout: timeout,
		now:            time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// NewReference generates a reference number for a pair whose caller did not
// supply one.
func NewReference() string {
	return "IC-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateOrderPair creates a sales order in the source company and its
// mirrored purchase order in the target company, linked by one shared
// reference number, plus the pending pairing record. Everything lands in
// one transaction.
func (s *Service) CreateOrderPair(ctx context.Context, req CreateOrderPairRequest) (*OrderPairResult, error) {
	lines := make([]orders.CreateLineRequest, 0, len(req.Products))
	for _, p := range req.Products {
		qty, err := fulfillment.ParseQuantity(p.Quantity)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", p.ProductID, err)
		}
		price, err := fulfillment.ParseMoney(p.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", p.ProductID, err)
		}
		lines = append(lines, orders.CreateLineRequest{
			ProductID:   p.ProductID,
			Description: p.Description,
			Quantity:    qty,
			UnitPrice:   price,
		})
	}
	total, amounts, err := orders.LineTotals(lines)
	if err != nil {
		return nil, err
	}

	reference := NewReference()
	if req.ReferenceNumber != nil && *req.ReferenceNumber != "" {
		reference = *req.ReferenceNumber
	}
	orderDate := req.OrderDate
	if orderDate.IsZero() {
		orderDate = s.now()
	}

	var result OrderPairResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx Stores) error {
		if _, _, err := company.ValidatePair(ctx, tx.Company, req.SourceCompanyID, req.TargetCompanyID); err != nil {
			return err
		}
		soID, err := orders.BuildSalesOrder(ctx, tx.Orders, orders.CreateSalesOrderRequest{
			CompanyID:       req.SourceCompanyID,
			CustomerID:      req.TargetCompanyID,
			ReferenceNumber: &reference,
			Lines:           lines,
		}, orders.SalesOrderStatusConfirmed, total, amounts, orderDate)
		if err != nil {
			return err
		}
		poID, err := orders.BuildPurchaseOrder(ctx, tx.Orders, orders.CreatePurchaseOrderRequest{
			CompanyID:       req.TargetCompanyID,
			SupplierID:      req.SourceCompanyID,
			ReferenceNumber: &reference,
			Lines:           lines,
		}, orders.PurchaseOrderStatusApproved, total, amounts, orderDate)
		if err != nil {
			return err
		}
		txnID, err := tx.IC.Insert(ctx, &Transaction{
			SourceCompanyID: req.SourceCompanyID,
			TargetCompanyID: req.TargetCompanyID,
			ReferenceNumber: reference,
			Amount:          total,
			SourceOrderID:   &soID,
			TargetOrderID:   &poID,
			Status:          StatusPending,
			PaymentStatus:   PaymentPending,
		})
		if err != nil {
			return err
		}
		so, err := tx.Orders.GetSalesOrder(ctx, soID)
		if err != nil {
			return err
		}
		po, err := tx.Orders.GetPurchaseOrder(ctx, poID)
		if err != nil {
			return err
		}
		result = OrderPairResult{
			SalesOrder:      so,
			PurchaseOrder:   po,
			ReferenceNumber: reference,
			TransactionID:   txnID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, "intercompany.order_pair", result.TransactionID, reference)
	return &result, nil
}

// CreateInvoice invoices a sales order across the pair: the validated lines
// become an invoice in the source company and a mirrored bill in the target
// company, the journal pair posts in both books and the pairing record
// completes — all in one transaction bounded by the invoice timeout.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoicePairResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.invoiceTimeout)
	defer cancel()

	release, err := s.claimKey(ctx, req.IdempotencyKey, "intercompany.invoice")
	if err != nil {
		return nil, err
	}

	now := s.now()
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = now.AddDate(0, 0, 30)
	}

	var result InvoicePairResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx Stores) error {
		order, err := tx.Orders.GetSalesOrder(ctx, req.SalesOrderID)
		if err != nil {
			return err
		}
		if order.CompanyID != req.CompanyID {
			return fmt.Errorf("%w: sales order %d", ErrCompanyMismatch, order.ID)
		}
		txn, err := s.resolveTransaction(ctx, tx, req.CompanyID, matchQueryFor(order))
		if err != nil {
			return err
		}

		applied, err := tx.Billing.AppliedQuantities(ctx, order.ID)
		if err != nil {
			return err
		}
		selections := req.Selections
		if len(selections) == 0 {
			selections = selectAllRemaining(order, applied)
			if len(selections) == 0 {
				return fmt.Errorf("%w: order %s", ErrNothingToInvoice, order.DocNumber)
			}
		}
		processed, err := fulfillment.ApplyPartialDocument(ctx, tx.Orders, order, selections, applied, productNamer{tx.Billing})
		if err != nil {
			return err
		}
		amount := decimal.Zero
		for _, line := range processed {
			amount = amount.Add(line.Amount)
		}

		entries, err := PostInvoicePair(ctx, tx, txn, amount, now)
		if err != nil {
			return err
		}
		invoice, err := billing.BuildInvoice(ctx, tx.Billing, billing.InvoiceSpec{
			CompanyID:       txn.SourceCompanyID,
			CustomerID:      txn.TargetCompanyID,
			SalesOrderID:    order.ID,
			ReferenceNumber: &txn.ReferenceNumber,
			InvoiceDate:     now,
			DueDate:         dueDate,
			JournalEntryID:  &entries.Source.ID,
		}, processed)
		if err != nil {
			return err
		}
		var poID int64
		if txn.TargetOrderID != nil {
			poID = *txn.TargetOrderID
		}
		bill, err := billing.BuildBill(ctx, tx.Billing, billing.BillSpec{
			CompanyID:       txn.TargetCompanyID,
			SupplierID:      txn.SourceCompanyID,
			PurchaseOrderID: poID,
			ReferenceNumber: &txn.ReferenceNumber,
			BillDate:        now,
			DueDate:         dueDate,
			JournalEntryID:  &entries.Target.ID,
		}, processed)
		if err != nil {
			return err
		}
		if err := tx.IC.SetDocumentLinks(ctx, txn.ID, &invoice.ID, &bill.ID); err != nil {
			return err
		}
		result = InvoicePairResult{
			Invoice:         invoice,
			Bill:            bill,
			ReferenceNumber: txn.ReferenceNumber,
			Entries:         entries,
		}
		return nil
	})
	if err != nil {
		release()
		return nil, err
	}
	_ = s.cache.Bump(ctx)
	if s.metrics != nil {
		s.metrics.PairCompleted()
	}
	s.recordAudit(ctx, "intercompany.invoice_pair", result.Invoice.ID, result.ReferenceNumber)
	return &result, nil
}

// CreateReceiptPayment settles (part of) an intercompany invoice: the
// source company records a receipt, the target company records a payment,
// both with posted journal entries, and the invoice, bill, order and
// pairing record all recompute their payment state in one transaction.
func (s *Service) CreateReceiptPayment(ctx context.Context, req CreateReceiptPaymentRequest) (*ReceiptPaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	release, err := s.claimKey(ctx, req.IdempotencyKey, "intercompany.receipt_payment")
	if err != nil {
		return nil, err
	}
	now := s.now()

	var result ReceiptPaymentResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx Stores) error {
		invoice, err := tx.Billing.GetInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.CompanyID != req.CompanyID {
			return fmt.Errorf("%w: invoice %d", ErrCompanyMismatch, invoice.ID)
		}
		reference := ""
		if invoice.ReferenceNumber != nil {
			reference = *invoice.ReferenceNumber
		}
		txn, err := s.resolveTransaction(ctx, tx, req.CompanyID, MatchQuery{
			ReferenceNumber: reference,
			OrderID:         strconv.FormatInt(invoice.SalesOrderID, 10),
		})
		if err != nil {
			return err
		}

		pair, err := PostPaymentPair(ctx, tx, txn, req.Amount, now)
		if err != nil {
			return err
		}

		receiptNumber, err := tx.Billing.GenerateReceiptNumber(ctx, txn.SourceCompanyID, now)
		if err != nil {
			return err
		}
		receipt := &billing.Receipt{
			CompanyID:       txn.SourceCompanyID,
			SalesOrderID:    invoice.SalesOrderID,
			InvoiceID:       &invoice.ID,
			CustomerID:      txn.TargetCompanyID,
			DocNumber:       receiptNumber,
			ReferenceNumber: &txn.ReferenceNumber,
			Amount:          req.Amount,
			PaymentMethod:   req.PaymentMethod,
			DebitAccountID:  pair.ReceivingDebit,
			CreditAccountID: pair.ReceivingCredit,
			JournalEntryID:  pair.Receiving.ID,
			ReceiptDate:     now,
		}
		receiptID, err := tx.Billing.InsertReceipt(ctx, receipt)
		if err != nil {
			return err
		}
		receipt.ID = receiptID

		paymentNumber, err := tx.Billing.GeneratePaymentNumber(ctx, txn.TargetCompanyID, now)
		if err != nil {
			return err
		}
		var poID int64
		if txn.TargetOrderID != nil {
			poID = *txn.TargetOrderID
		}
		payment := &billing.Payment{
			CompanyID:       txn.TargetCompanyID,
			PurchaseOrderID: poID,
			BillID:          txn.TargetBillID,
			SupplierID:      txn.SourceCompanyID,
			DocNumber:       paymentNumber,
			ReferenceNumber: &txn.ReferenceNumber,
			Amount:          req.Amount,
			PaymentMethod:   req.PaymentMethod,
			DebitAccountID:  pair.PayingDebit,
			CreditAccountID: pair.PayingCredit,
			JournalEntryID:  pair.Paying.ID,
			PaymentDate:     now,
		}
		paymentID, err := tx.Billing.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = paymentID

		updatedInvoice, err := billing.SettleInvoice(ctx, tx.Billing, invoice.ID)
		if err != nil {
			return err
		}
		if txn.TargetBillID != nil {
			if _, err := billing.SettleBill(ctx, tx.Billing, *txn.TargetBillID); err != nil {
				return err
			}
		}
		order, err := tx.Orders.GetSalesOrder(ctx, invoice.SalesOrderID)
		if err != nil {
			return err
		}
		if err := billing.UpdateOrderPaymentStatus(ctx, tx.Billing, tx.Orders, order); err != nil {
			return err
		}

		if err := tx.IC.SetMoneyLinks(ctx, txn.ID, &receiptID, &paymentID); err != nil {
			return err
		}
		if err := tx.IC.SetPaymentStatus(ctx, txn.ID, paymentStatusFor(updatedInvoice.Status)); err != nil {
			return err
		}

		result = ReceiptPaymentResult{
			Receipt: receipt,
			Payment: payment,
			Entries: pair,
			Invoice: updatedInvoice,
		}
		return nil
	})
	if err != nil {
		release()
		return nil, err
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, "intercompany.receipt_payment", result.Receipt.ID, *result.Receipt.ReferenceNumber)
	return &result, nil
}

// ResolveTransactionGroup fans out over every document table joined on the
// reference number. It is the operator's audit and recovery view of one
// logical transaction across both companies' books.
func (s *Service) ResolveTransactionGroup(ctx context.Context, reference string) (*TransactionGroup, error) {
	group := &TransactionGroup{ReferenceNumber: reference}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		group.SalesOrders, err = s.ordersReader.FindSalesOrdersByReference(ctx, reference)
		return err
	})
	g.Go(func() error {
		var err error
		group.PurchaseOrders, err = s.ordersReader.FindPurchaseOrdersByReference(ctx, reference)
		return err
	})
	g.Go(func() error {
		var err error
		group.Invoices, err = s.billingReader.FindInvoicesByReference(ctx, reference)
		return err
	})
	g.Go(func() error {
		var err error
		group.Bills, err = s.billingReader.FindBillsByReference(ctx, reference)
		return err
	})
	g.Go(func() error {
		var err error
		group.Receipts, err = s.billingReader.FindReceiptsByReference(ctx, reference)
		return err
	})
	g.Go(func() error {
		var err error
		group.Payments, err = s.billingReader.FindPaymentsByReference(ctx, reference)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return group, nil
}

// ListTransactions returns a company's pairing records, served from the
// versioned cache when warm.
func (s *Service) ListTransactions(ctx context.Context, companyID int64) ([]Transaction, error) {
	return s.cache.Transactions(ctx, companyID, func(ctx context.Context) ([]Transaction, error) {
		return s.ic.ListByCompany(ctx, companyID)
	})
}

// GetTransaction returns one pairing record.
func (s *Service) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	return s.ic.GetTransaction(ctx, id)
}

// resolveTransaction runs the matching cascade in two tiers: the cached
// company list first, then the same cascade over a fresh server-side query
// inside the transaction. A cache failure degrades to the server tier
// instead of failing the operation.
func (s *Service) resolveTransaction(ctx context.Context, tx Stores, companyID int64, q MatchQuery) (*Transaction, error) {
	cached, err := s.cache.Transactions(ctx, companyID, func(ctx context.Context) ([]Transaction, error) {
		return s.ic.ListByCompany(ctx, companyID)
	})
	if err == nil {
		if hit, strategy, ok := FindMatch(cached, q); ok {
			s.recordMatch(strategy)
			// Re-read inside the transaction; the cached copy may be stale.
			return tx.IC.GetTransaction(ctx, hit.ID)
		}
	}
	all, err := tx.IC.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if hit, strategy, ok := FindMatch(all, q); ok {
		s.recordMatch(strategy)
		return hit, nil
	}
	return nil, fmt.Errorf("reference %q order %q: %w", q.ReferenceNumber, q.OrderID, ErrTransactionNotFound)
}

// claimKey records the idempotency key before the workflow runs. The
// returned release removes it again so a failed attempt can be retried;
// on success the key stays and a duplicate request conflicts.
func (s *Service) claimKey(ctx context.Context, key, operation string) (func(), error) {
	if s.idempotency == nil || key == "" {
		return func() {}, nil
	}
	if err := s.idempotency.CheckAndInsert(ctx, key, operation); err != nil {
		return nil, err
	}
	return func() { _ = s.idempotency.Delete(ctx, key) }, nil
}

func (s *Service) recordMatch(strategy string) {
	if s.metrics != nil {
		s.metrics.MatchHit(strategy)
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, reference string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "intercompany_transaction",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     map[string]any{"reference_number": reference},
		At:       s.now(),
	})
}

func matchQueryFor(order *orders.SalesOrder) MatchQuery {
	q := MatchQuery{OrderID: strconv.FormatInt(order.ID, 10)}
	if order.ReferenceNumber != nil {
		q.ReferenceNumber = *order.ReferenceNumber
	}
	return q
}

// selectAllRemaining builds the full-invoice selection from whatever is not
// yet invoiced.
func selectAllRemaining(order *orders.SalesOrder, applied []fulfillment.AppliedLine) []fulfillment.Selection {
	remaining := fulfillment.ComputeRemaining(order.Lines, applied)
	byLineID := make(map[int64]orders.SalesOrderLine, len(order.Lines))
	for _, line := range order.Lines {
		byLineID[line.ID] = line
	}
	var selections []fulfillment.Selection
	for _, rem := range remaining {
		if !rem.RemainingQty.IsPositive() {
			continue
		}
		lineID := rem.LineID
		selections = append(selections, fulfillment.Selection{
			ProductID: rem.ProductID,
			SOItemID:  &lineID,
			Quantity:  rem.RemainingQty,
			UnitPrice: byLineID[rem.LineID].UnitPrice,
		})
	}
	return selections
}

// productNamer adapts the billing store to the fulfillment hydration port.
type productNamer struct {
	store billing.Store
}

func (p productNamer) ProductName(ctx context.Context, productID int64) (string, error) {
	return p.store.ProductName(ctx, productID)
}
