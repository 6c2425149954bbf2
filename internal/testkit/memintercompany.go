package testkit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/crossbooks/crossbooks/internal/intercompany"
)

// MemIC is an in-memory intercompany.Store.
type MemIC struct {
	mu     sync.Mutex
	nextID int64
	Txns   map[int64]*intercompany.Transaction
}

func NewMemIC() *MemIC {
	return &MemIC{nextID: 1, Txns: map[int64]*intercompany.Transaction{}}
}

func (m *MemIC) GetTransaction(_ context.Context, id int64) (*intercompany.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.Txns[id]
	if !ok {
		return nil, intercompany.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (m *MemIC) FindByReference(_ context.Context, reference string) (*intercompany.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.Txns {
		if strings.EqualFold(txn.ReferenceNumber, reference) {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, intercompany.ErrTransactionNotFound
}

func (m *MemIC) ListByCompany(_ context.Context, companyID int64) ([]intercompany.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []intercompany.Transaction
	for _, txn := range m.Txns {
		if txn.SourceCompanyID == companyID || txn.TargetCompanyID == companyID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (m *MemIC) Insert(_ context.Context, txn *intercompany.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn.ID = m.nextID
	m.nextID++
	txn.CreatedAt = time.Now()
	cp := *txn
	m.Txns[txn.ID] = &cp
	return txn.ID, nil
}

func (m *MemIC) SetDocumentLinks(_ context.Context, id int64, sourceInvoiceID, targetBillID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.Txns[id]
	if !ok {
		return intercompany.ErrTransactionNotFound
	}
	txn.SourceInvoiceID = sourceInvoiceID
	txn.TargetBillID = targetBillID
	return nil
}

func (m *MemIC) SetMoneyLinks(_ context.Context, id int64, sourceReceiptID, targetPaymentID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.Txns[id]
	if !ok {
		return intercompany.ErrTransactionNotFound
	}
	txn.SourceReceiptID = sourceReceiptID
	txn.TargetPaymentID = targetPaymentID
	return nil
}

func (m *MemIC) MarkCompleted(_ context.Context, id, sourceEntryID, targetEntryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.Txns[id]
	if !ok {
		return intercompany.ErrTransactionNotFound
	}
	txn.SourceJournalEntryID = &sourceEntryID
	txn.TargetJournalEntryID = &targetEntryID
	txn.Status = intercompany.StatusCompleted
	return nil
}

func (m *MemIC) SetPaymentStatus(_ context.Context, id int64, status intercompany.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.Txns[id]
	if !ok {
		return intercompany.ErrTransactionNotFound
	}
	txn.PaymentStatus = status
	return nil
}

func (m *MemIC) SetStatus(_ context.Context, id int64, status intercompany.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.Txns[id]
	if !ok {
		return intercompany.ErrTransactionNotFound
	}
	txn.Status = status
	return nil
}

func (m *MemIC) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	txns := make(map[int64]*intercompany.Transaction, len(m.Txns))
	for id, txn := range m.Txns {
		cp := *txn
		txns[id] = &cp
	}
	nextID := m.nextID
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Txns = txns
		m.nextID = nextID
	}
}

// ICRunner satisfies intercompany.TxRunner over the in-memory stores. A
// failed fn restores every store to its pre-transaction state, matching
// the rollback the pgx runner gets from the database.
type ICRunner struct {
	Stores intercompany.Stores
}

func (r *ICRunner) RunInTx(ctx context.Context, fn func(context.Context, intercompany.Stores) error) error {
	restore := snapshotAll(r.Stores.IC, r.Stores.Billing, r.Stores.Orders, r.Stores.Ledger, r.Stores.Company)
	if err := fn(ctx, r.Stores); err != nil {
		restore()
		return err
	}
	return nil
}

// snapshotter is implemented by the fakes that can roll their state back.
type snapshotter interface {
	snapshot() func()
}

func snapshotAll(stores ...any) func() {
	var restores []func()
	for _, s := range stores {
		if snap, ok := s.(snapshotter); ok {
			restores = append(restores, snap.snapshot())
		}
	}
	return func() {
		for _, restore := range restores {
			restore()
		}
	}
}
