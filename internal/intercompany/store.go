package intercompany

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/company"
	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/platform/db"
)

// ErrTransactionNotFound indicates no pairing record matches.
var ErrTransactionNotFound = errors.New("intercompany: transaction not found")

// Store exposes pairing record operations, usable on a pool or inside an
// enclosing transaction.
type Store interface {
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	FindByReference(ctx context.Context, reference string) (*Transaction, error)
	ListByCompany(ctx context.Context, companyID int64) ([]Transaction, error)
	Insert(ctx context.Context, txn *Transaction) (int64, error)
	SetDocumentLinks(ctx context.Context, id int64, sourceInvoiceID, targetBillID *int64) error
	SetMoneyLinks(ctx context.Context, id int64, sourceReceiptID, targetPaymentID *int64) error
	MarkCompleted(ctx context.Context, id, sourceEntryID, targetEntryID int64) error
	SetPaymentStatus(ctx context.Context, id int64, status PaymentStatus) error
	SetStatus(ctx context.Context, id int64, status Status) error
}

// Stores bundles every per-domain store an intercompany workflow touches in
// one transaction.
type Stores struct {
	IC      Store
	Billing billing.Store
	Orders  orders.Store
	Ledger  ledger.Store
	Company company.Store
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
			IC:      NewStore(tx),
			Billing: billing.NewStore(tx),
			Orders:  orders.NewStore(tx),
			Ledger:  ledger.NewStore(tx),
			Company: company.NewStore(tx),
		})
	})
}

const txnColumns = `id, source_company_id, target_company_id, reference_number, amount, source_order_id, target_order_id, source_invoice_id, target_bill_id, source_receipt_id, target_payment_id, source_journal_entry_id, target_journal_entry_id, status, payment_status, created_at, updated_at`

func scanTxn(row pgx.Row, t *Transaction) error {
	return row.Scan(&t.ID, &t.SourceCompanyID, &t.TargetCompanyID, &t.ReferenceNumber, &t.Amount,
		&t.SourceOrderID, &t.TargetOrderID, &t.SourceInvoiceID, &t.TargetBillID,
		&t.SourceReceiptID, &t.TargetPaymentID, &t.SourceJournalEntryID, &t.TargetJournalEntryID,
		&t.Status, &t.PaymentStatus, &t.CreatedAt, &t.UpdatedAt)
}

func (s *store) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	var t Transaction
	err := scanTxn(s.db.QueryRow(ctx, `SELECT `+txnColumns+` FROM intercompany_transactions WHERE id=$1`, id), &t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrTransactionNotFound)
		}
		return nil, err
	}
	return &t, nil
}

func (s *store) FindByReference(ctx context.Context, reference string) (*Transaction, error) {
	var t Transaction
	err := scanTxn(s.db.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM intercompany_transactions WHERE reference_number=$1 ORDER BY id LIMIT 1`, reference), &t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reference %s: %w", reference, ErrTransactionNotFound)
		}
		return nil, err
	}
	return &t, nil
}

func (s *store) ListByCompany(ctx context.Context, companyID int64) ([]Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+txnColumns+` FROM intercompany_transactions
WHERE source_company_id=$1 OR target_company_id=$1 ORDER BY id DESC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := scanTxn(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *store) Insert(ctx context.Context, txn *Transaction) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO intercompany_transactions
(source_company_id, target_company_id, reference_number, amount, source_order_id, target_order_id, status, payment_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		txn.SourceCompanyID, txn.TargetCompanyID, txn.ReferenceNumber, txn.Amount,
		txn.SourceOrderID, txn.TargetOrderID, txn.Status, txn.PaymentStatus).Scan(&id)
	return id, err
}

func (s *store) SetDocumentLinks(ctx context.Context, id int64, sourceInvoiceID, targetBillID *int64) error {
	return s.exec(ctx, id,
		`UPDATE intercompany_transactions SET source_invoice_id=$2, target_bill_id=$3, updated_at=NOW() WHERE id=$1`,
		sourceInvoiceID, targetBillID)
}

func (s *store) SetMoneyLinks(ctx context.Context, id int64, sourceReceiptID, targetPaymentID *int64) error {
	return s.exec(ctx, id,
		`UPDATE intercompany_transactions SET source_receipt_id=$2, target_payment_id=$3, updated_at=NOW() WHERE id=$1`,
		sourceReceiptID, targetPaymentID)
}

func (s *store) MarkCompleted(ctx context.Context, id, sourceEntryID, targetEntryID int64) error {
	return s.exec(ctx, id,
		`UPDATE intercompany_transactions
SET status=$2, source_journal_entry_id=$3, target_journal_entry_id=$4, updated_at=NOW() WHERE id=$1`,
		StatusCompleted, sourceEntryID, targetEntryID)
}

func (s *store) SetPaymentStatus(ctx context.Context, id int64, status PaymentStatus) error {
	return s.exec(ctx, id,
		`UPDATE intercompany_transactions SET payment_status=$2, updated_at=NOW() WHERE id=$1`, status)
}

func (s *store) SetStatus(ctx context.Context, id int64, status Status) error {
	return s.exec(ctx, id,
		`UPDATE intercompany_transactions SET status=$2, updated_at=NOW() WHERE id=$1`, status)
}

func (s *store) exec(ctx context.Context, id int64, query string, args ...interface{}) error {
	cmd, err := s.db.Exec(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d: %w", id, ErrTransactionNotFound)
	}
	return nil
}
