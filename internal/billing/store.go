package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/fulfillment"
	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/platform/db"
)

// Store exposes billing data operations, usable on a pool or inside an
// enclosing transaction.
type Store interface {
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	GetBill(ctx context.Context, id int64) (*Bill, error)
	ListInvoices(ctx context.Context, req ListDocumentsRequest) ([]Invoice, error)
	ListBills(ctx context.Context, req ListDocumentsRequest) ([]Bill, error)
	FindInvoicesByReference(ctx context.Context, reference string) ([]Invoice, error)
	FindBillsByReference(ctx context.Context, reference string) ([]Bill, error)
	FindReceiptsByReference(ctx context.Context, reference string) ([]Receipt, error)
	FindPaymentsByReference(ctx context.Context, reference string) ([]Payment, error)
	InsertInvoice(ctx context.Context, inv *Invoice) (int64, error)
	InsertInvoiceItem(ctx context.Context, item *InvoiceItem) (int64, error)
	InsertBill(ctx context.Context, bill *Bill) (int64, error)
	InsertBillItem(ctx context.Context, item *BillItem) (int64, error)
	InsertReceipt(ctx context.Context, receipt *Receipt) (int64, error)
	InsertPayment(ctx context.Context, payment *Payment) (int64, error)
	SetInvoiceTotals(ctx context.Context, id int64, amountPaid, balanceDue decimal.Decimal, status DocumentStatus) error
	SetBillTotals(ctx context.Context, id int64, amountPaid, balanceDue decimal.Decimal, status DocumentStatus) error
	SetInvoiceStatus(ctx context.Context, id int64, status DocumentStatus) error
	SumReceiptsForOrder(ctx context.Context, salesOrderID int64) (decimal.Decimal, error)
	SumReceiptsForInvoice(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
	SumPaymentsForBill(ctx context.Context, billID int64) (decimal.Decimal, error)
	AppliedQuantities(ctx context.Context, salesOrderID int64) ([]fulfillment.AppliedLine, error)
	ProductName(ctx context.Context, productID int64) (string, error)
	GenerateInvoiceNumber(ctx context.Context, companyID int64, date time.Time) (string, error)
	GenerateBillNumber(ctx context.Context, companyID int64, date time.Time) (string, error)
	GenerateReceiptNumber(ctx context.Context, companyID int64, date time.Time) (string, error)
	GeneratePaymentNumber(ctx context.Context, companyID int64, date time.Time) (string, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	OutstandingInvoices(ctx context.Context, companyID int64) ([]Invoice, error)
}

// Stores bundles the per-domain stores one transaction spans. Money events
// touch billing rows, order payment status and the ledger together.
type Stores struct {
	Billing Store
	Orders  orders.Store
	Ledger  ledger.Store
}

// TxRunner opens one transaction and hands the caller stores bound to it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(context.Context, Stores) error) error
}

type store struct {
	db db.DBTX
}

// NewStore builds a Store over a pool or transaction.
func NewStore(dbtx db.DBTX) Store {
	return &store{db: dbtx}
}

type txRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner builds the pgx-backed TxRunner.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &txRunner{pool: pool}
}

func (r *txRunner) RunInTx(ctx context.Context, fn func(context.Context, Stores) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, Stores{
			Billing: NewStore(tx),
			Orders:  orders.NewStore(tx),
			Ledger:  ledger.NewStore(tx),
		})
	})
}

const invoiceColumns = `id, company_id, customer_id, sales_order_id, doc_number, reference_number, invoice_date, due_date, status, total, amount_paid, balance_due, journal_entry_id, created_at, updated_at`

func scanInvoice(row pgx.Row, inv *Invoice) error {
	return row.Scan(&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.SalesOrderID, &inv.DocNumber, &inv.ReferenceNumber,
		&inv.InvoiceDate, &inv.DueDate, &inv.Status, &inv.Total, &inv.AmountPaid, &inv.BalanceDue, &inv.JournalEntryID,
		&inv.CreatedAt, &inv.UpdatedAt)
}

func (s *store) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	err := scanInvoice(s.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id), &inv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	items, err := s.invoiceItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func (s *store) invoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, invoice_id, product_id, description, quantity, unit_price, amount, so_item_id, paid_quantity, fully_paid
FROM invoice_items WHERE invoice_id=$1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount, &it.SOItemID, &it.PaidQuantity, &it.FullyPaid); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const billColumns = `id, company_id, supplier_id, purchase_order_id, doc_number, reference_number, bill_date, due_date, status, total, amount_paid, balance_due, journal_entry_id, created_at, updated_at`

func scanBill(row pgx.Row, b *Bill) error {
	return row.Scan(&b.ID, &b.CompanyID, &b.SupplierID, &b.PurchaseOrderID, &b.DocNumber, &b.ReferenceNumber,
		&b.BillDate, &b.DueDate, &b.Status, &b.Total, &b.AmountPaid, &b.BalanceDue, &b.JournalEntryID,
		&b.CreatedAt, &b.UpdatedAt)
}

func (s *store) GetBill(ctx context.Context, id int64) (*Bill, error) {
	var b Bill
	err := scanBill(s.db.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id=$1`, id), &b)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bill %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	items, err := s.billItems(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return &b, nil
}

func (s *store) billItems(ctx context.Context, billID int64) ([]BillItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, bill_id, product_id, description, quantity, unit_price, amount, po_item_id
FROM bill_items WHERE bill_id=$1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BillItem
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount, &it.POItemID); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *store) ListInvoices(ctx context.Context, req ListDocumentsRequest) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id=$1`
	args := []interface{}{req.CompanyID}
	argPos := 2
	if req.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, req.Status)
		argPos++
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY invoice_date DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, req.Offset)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *store) ListBills(ctx context.Context, req ListDocumentsRequest) ([]Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE company_id=$1`
	args := []interface{}{req.CompanyID}
	argPos := 2
	if req.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, req.Status)
		argPos++
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY bill_date DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, req.Offset)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		var b Bill
		if err := scanBill(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *store) FindInvoicesByReference(ctx context.Context, reference string) ([]Invoice, error) {
	rows, err := s.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE reference_number=$1 ORDER BY id`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.invoiceItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *store) FindBillsByReference(ctx context.Context, reference string) ([]Bill, error) {
	rows, err := s.db.Query(ctx, `SELECT `+billColumns+` FROM bills WHERE reference_number=$1 ORDER BY id`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		var b Bill
		if err := scanBill(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.billItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

const receiptColumns = `id, company_id, sales_order_id, invoice_id, customer_id, doc_number, reference_number, amount, payment_method, debit_account_id, credit_account_id, journal_entry_id, receipt_date, created_at`

func (s *store) FindReceiptsByReference(ctx context.Context, reference string) ([]Receipt, error) {
	rows, err := s.db.Query(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE reference_number=$1 ORDER BY id`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Receipt
	for rows.Next() {
		var rc Receipt
		if err := rows.Scan(&rc.ID, &rc.CompanyID, &rc.SalesOrderID, &rc.InvoiceID, &rc.CustomerID, &rc.DocNumber, &rc.ReferenceNumber,
			&rc.Amount, &rc.PaymentMethod, &rc.DebitAccountID, &rc.CreditAccountID, &rc.JournalEntryID, &rc.ReceiptDate, &rc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

const paymentColumns = `id, company_id, purchase_order_id, bill_id, supplier_id, doc_number, reference_number, amount, payment_method, debit_account_id, credit_account_id, journal_entry_id, payment_date, created_at`

func (s *store) FindPaymentsByReference(ctx context.Context, reference string) ([]Payment, error) {
	rows, err := s.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference_number=$1 ORDER BY id`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.PurchaseOrderID, &p.BillID, &p.SupplierID, &p.DocNumber, &p.ReferenceNumber,
			&p.Amount, &p.PaymentMethod, &p.DebitAccountID, &p.CreditAccountID, &p.JournalEntryID, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *store) InsertInvoice(ctx context.Context, inv *Invoice) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO invoices (company_id, customer_id, sales_order_id, doc_number, reference_number, invoice_date, due_date, status, total, amount_paid, balance_due, journal_entry_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		inv.CompanyID, inv.CustomerID, inv.SalesOrderID, inv.DocNumber, inv.ReferenceNumber, inv.InvoiceDate, inv.DueDate,
		inv.Status, inv.Total, inv.AmountPaid, inv.BalanceDue, inv.JournalEntryID).Scan(&id)
	return id, err
}

func (s *store) InsertInvoiceItem(ctx context.Context, item *InvoiceItem) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO invoice_items (invoice_id, product_id, description, quantity, unit_price, amount, so_item_id, paid_quantity, fully_paid)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		item.InvoiceID, item.ProductID, item.Description, item.Quantity, item.UnitPrice, item.Amount, item.SOItemID, item.PaidQuantity, item.FullyPaid).Scan(&id)
	return id, err
}

func (s *store) InsertBill(ctx context.Context, bill *Bill) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO bills (company_id, supplier_id, purchase_order_id, doc_number, reference_number, bill_date, due_date, status, total, amount_paid, balance_due, journal_entry_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		bill.CompanyID, bill.SupplierID, bill.PurchaseOrderID, bill.DocNumber, bill.ReferenceNumber, bill.BillDate, bill.DueDate,
		bill.Status, bill.Total, bill.AmountPaid, bill.BalanceDue, bill.JournalEntryID).Scan(&id)
	return id, err
}

func (s *store) InsertBillItem(ctx context.Context, item *BillItem) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO bill_items (bill_id, product_id, description, quantity, unit_price, amount, po_item_id)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		item.BillID, item.ProductID, item.Description, item.Quantity, item.UnitPrice, item.Amount, item.POItemID).Scan(&id)
	return id, err
}

func (s *store) InsertReceipt(ctx context.Context, receipt *Receipt) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO receipts (company_id, sales_order_id, invoice_id, customer_id, doc_number, reference_number, amount, payment_method, debit_account_id, credit_account_id, journal_entry_id, receipt_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		receipt.CompanyID, receipt.SalesOrderID, receipt.InvoiceID, receipt.CustomerID, receipt.DocNumber, receipt.ReferenceNumber,
		receipt.Amount, receipt.PaymentMethod, receipt.DebitAccountID, receipt.CreditAccountID, receipt.JournalEntryID, receipt.ReceiptDate).Scan(&id)
	return id, err
}

func (s *store) InsertPayment(ctx context.Context, payment *Payment) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO payments (company_id, purchase_order_id, bill_id, supplier_id, doc_number, reference_number, amount, payment_method, debit_account_id, credit_account_id, journal_entry_id, payment_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		payment.CompanyID, payment.PurchaseOrderID, payment.BillID, payment.SupplierID, payment.DocNumber, payment.ReferenceNumber,
		payment.Amount, payment.PaymentMethod, payment.DebitAccountID, payment.CreditAccountID, payment.JournalEntryID, payment.PaymentDate).Scan(&id)
	return id, err
}

func (s *store) SetInvoiceTotals(ctx context.Context, id int64, amountPaid, balanceDue decimal.Decimal, status DocumentStatus) error {
	cmd, err := s.db.Exec(ctx,
		`UPDATE invoices SET amount_paid=$2, balance_due=$3, status=$4, updated_at=NOW() WHERE id=$1`,
		id, amountPaid, balanceDue, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *store) SetBillTotals(ctx context.Context, id int64, amountPaid, balanceDue decimal.Decimal, status DocumentStatus) error {
	cmd, err := s.db.Exec(ctx,
		`UPDATE bills SET amount_paid=$2, balance_due=$3, status=$4, updated_at=NOW() WHERE id=$1`,
		id, amountPaid, balanceDue, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("bill %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *store) SetInvoiceStatus(ctx context.Context, id int64, status DocumentStatus) error {
	cmd, err := s.db.Exec(ctx, `UPDATE invoices SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *store) SumReceiptsForOrder(ctx context.Context, salesOrderID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM receipts WHERE sales_order_id=$1`, salesOrderID).Scan(&sum)
	return sum, err
}

func (s *store) SumReceiptsForInvoice(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM receipts WHERE invoice_id=$1`, invoiceID).Scan(&sum)
	return sum, err
}

func (s *store) SumPaymentsForBill(ctx context.Context, billID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE bill_id=$1`, billID).Scan(&sum)
	return sum, err
}

// AppliedQuantities reports quantities consumed by non-void invoices against
// an order, feeding the remaining-quantity computation.
func (s *store) AppliedQuantities(ctx context.Context, salesOrderID int64) ([]fulfillment.AppliedLine, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ii.so_item_id, ii.product_id, ii.quantity
FROM invoice_items ii
JOIN invoices i ON i.id = ii.invoice_id
WHERE i.sales_order_id=$1 AND i.status <> $2
ORDER BY ii.id`, salesOrderID, StatusVoid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fulfillment.AppliedLine
	for rows.Next() {
		var a fulfillment.AppliedLine
		if err := rows.Scan(&a.SOItemID, &a.ProductID, &a.Quantity); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *store) ProductName(ctx context.Context, productID int64) (string, error) {
	var name string
	err := s.db.QueryRow(ctx, `SELECT name FROM products WHERE id=$1`, productID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return name, nil
}

func (s *store) GenerateInvoiceNumber(ctx context.Context, companyID int64, date time.Time) (string, error) {
	return s.nextDocNumber(ctx, "invoices", "INV", companyID, date)
}

func (s *store) GenerateBillNumber(ctx context.Context, companyID int64, date time.Time) (string, error) {
	return s.nextDocNumber(ctx, "bills", "BILL", companyID, date)
}

func (s *store) GenerateReceiptNumber(ctx context.Context, companyID int64, date time.Time) (string, error) {
	return s.nextDocNumber(ctx, "receipts", "RCPT", companyID, date)
}

func (s *store) GeneratePaymentNumber(ctx context.Context, companyID int64, date time.Time) (string, error) {
	return s.nextDocNumber(ctx, "payments", "PAY", companyID, date)
}

// nextDocNumber advances from the highest existing suffix per company, so
// deletions never recycle a number. The unique (company_id, doc_number)
// constraint is the race backstop.
func (s *store) nextDocNumber(ctx context.Context, table, prefix string, companyID int64, date time.Time) (string, error) {
	var next int64
	query := fmt.Sprintf(
		`SELECT COALESCE(MAX(split_part(doc_number, '-', 3)::bigint), 0) + 1 FROM %s WHERE company_id=$1`, table)
	if err := s.db.QueryRow(ctx, query, companyID).Scan(&next); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format("0601"), next), nil
}

// MarkOverdue flips open and partial invoices past their due date.
func (s *store) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	cmd, err := s.db.Exec(ctx,
		`UPDATE invoices SET status=$1, updated_at=NOW() WHERE status IN ($2, $3) AND due_date < $4`,
		StatusOverdue, StatusOpen, StatusPartial, asOf)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (s *store) OutstandingInvoices(ctx context.Context, companyID int64) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE company_id=$1 AND status IN ($2, $3, $4) AND balance_due > 0
		ORDER BY due_date, id`
	rows, err := s.db.Query(ctx, query, companyID, StatusOpen, StatusPartial, StatusOverdue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
