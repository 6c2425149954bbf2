// Package testkit provides in-memory store implementations shared by
// service tests across packages. Fakes keep the same error semantics as the
// pgx stores so sentinel assertions hold.
package testkit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/orders"
)

// MemLedger is an in-memory ledger.Store.
type MemLedger struct {
	Accounts map[int64]*ledger.Account
	Roles    map[int64]map[ledger.AccountRole]string
	Entries  []*ledger.JournalEntry
	seq      map[int64]int64
	nextID   int64
}

// NewMemLedger builds an empty ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		Accounts: make(map[int64]*ledger.Account),
		Roles:    make(map[int64]map[ledger.AccountRole]string),
		seq:      make(map[int64]int64),
	}
}

func (m *MemLedger) id() int64 {
	m.nextID++
	return m.nextID
}

// AddAccount registers an account and returns it.
func (m *MemLedger) AddAccount(companyID int64, code, name string, typ ledger.AccountType) *ledger.Account {
	a := &ledger.Account{
		ID:        m.id(),
		CompanyID: companyID,
		Code:      code,
		Name:      name,
		Type:      typ,
		Balance:   decimal.Zero,
		IsActive:  true,
	}
	m.Accounts[a.ID] = a
	return a
}

// SeedStandardChart creates the conventional role accounts for a company.
func (m *MemLedger) SeedStandardChart(companyID int64) {
	m.AddAccount(companyID, "1000", "Cash", ledger.AccountTypeAsset)
	m.AddAccount(companyID, "1100", "Accounts Receivable", ledger.AccountTypeAsset)
	m.AddAccount(companyID, "1150", "Intercompany Receivable", ledger.AccountTypeAsset)
	m.AddAccount(companyID, "2000", "Accounts Payable", ledger.AccountTypeLiability)
	m.AddAccount(companyID, "2150", "Intercompany Payable", ledger.AccountTypeLiability)
	m.AddAccount(companyID, "4000", "Revenue", ledger.AccountTypeRevenue)
	m.AddAccount(companyID, "5000", "Expense", ledger.AccountTypeExpense)
}

func (m *MemLedger) GetAccount(_ context.Context, companyID, accountID int64) (*ledger.Account, error) {
	a, ok := m.Accounts[accountID]
	if !ok || a.CompanyID != companyID {
		return nil, fmt.Errorf("account %d for company %d: %w", accountID, companyID, ledger.ErrAccountNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *MemLedger) GetAccountByCode(_ context.Context, companyID int64, code string) (*ledger.Account, error) {
	for _, a := range m.Accounts {
		if a.CompanyID == companyID && a.Code == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("account code %s for company %d: %w", code, companyID, ledger.ErrAccountNotFound)
}

func (m *MemLedger) ResolveRoleCode(_ context.Context, companyID int64, role ledger.AccountRole) (string, error) {
	if byRole, ok := m.Roles[companyID]; ok {
		if code, ok := byRole[role]; ok {
			return code, nil
		}
	}
	return role.DefaultCode(), nil
}

func (m *MemLedger) NextEntrySeq(_ context.Context, companyID int64) (int64, error) {
	m.seq[companyID]++
	return m.seq[companyID], nil
}

func (m *MemLedger) InsertEntry(_ context.Context, entry *ledger.JournalEntry) (int64, error) {
	cp := *entry
	cp.ID = m.id()
	m.Entries = append(m.Entries, &cp)
	return cp.ID, nil
}

func (m *MemLedger) InsertLines(_ context.Context, entryID int64, lines []ledger.JournalLine) error {
	for _, e := range m.Entries {
		if e.ID == entryID {
			for i := range lines {
				lines[i].EntryID = entryID
				lines[i].ID = m.id()
			}
			e.Lines = append(e.Lines, lines...)
			return nil
		}
	}
	return fmt.Errorf("entry %d: %w", entryID, ledger.ErrEntryNotFound)
}

func (m *MemLedger) AddToBalance(_ context.Context, accountID int64, delta decimal.Decimal) error {
	a, ok := m.Accounts[accountID]
	if !ok {
		return fmt.Errorf("account %d: %w", accountID, ledger.ErrAccountNotFound)
	}
	a.Balance = a.Balance.Add(delta)
	return nil
}

func (m *MemLedger) GetEntryWithLines(_ context.Context, entryID int64) (*ledger.JournalEntry, error) {
	for _, e := range m.Entries {
		if e.ID == entryID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("entry %d: %w", entryID, ledger.ErrEntryNotFound)
}

func (m *MemLedger) ListEntries(_ context.Context, req ledger.ListEntriesRequest) ([]ledger.JournalEntry, error) {
	var out []ledger.JournalEntry
	for _, e := range m.Entries {
		if e.CompanyID == req.CompanyID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// EntriesFor returns posted entries for one company, oldest first.
func (m *MemLedger) EntriesFor(companyID int64) []*ledger.JournalEntry {
	var out []*ledger.JournalEntry
	for _, e := range m.Entries {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out
}

// WithTx satisfies ledger.Repository. A failed fn restores the ledger to
// its pre-transaction state.
func (m *MemLedger) WithTx(ctx context.Context, fn func(context.Context, ledger.Store) error) error {
	restore := m.snapshot()
	if err := fn(ctx, m); err != nil {
		restore()
		return err
	}
	return nil
}

var _ ledger.Repository = (*MemLedger)(nil)

// MemOrders is an in-memory orders.Store.
type MemOrders struct {
	SalesOrders    map[int64]*orders.SalesOrder
	PurchaseOrders map[int64]*orders.PurchaseOrder
	nextID         int64
}

// NewMemOrders builds an empty order store.
func NewMemOrders() *MemOrders {
	return &MemOrders{
		SalesOrders:    make(map[int64]*orders.SalesOrder),
		PurchaseOrders: make(map[int64]*orders.PurchaseOrder),
	}
}

func (m *MemOrders) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemOrders) GetSalesOrder(_ context.Context, id int64) (*orders.SalesOrder, error) {
	o, ok := m.SalesOrders[id]
	if !ok {
		return nil, fmt.Errorf("sales order %d: %w", id, orders.ErrNotFound)
	}
	cp := *o
	cp.Lines = append([]orders.SalesOrderLine(nil), o.Lines...)
	return &cp, nil
}

func (m *MemOrders) GetPurchaseOrder(_ context.Context, id int64) (*orders.PurchaseOrder, error) {
	o, ok := m.PurchaseOrders[id]
	if !ok {
		return nil, fmt.Errorf("purchase order %d: %w", id, orders.ErrNotFound)
	}
	cp := *o
	cp.Lines = append([]orders.PurchaseOrderLine(nil), o.Lines...)
	return &cp, nil
}

func (m *MemOrders) ListSalesOrders(_ context.Context, req orders.ListOrdersRequest) ([]orders.SalesOrder, error) {
	var out []orders.SalesOrder
	for _, o := range m.SalesOrders {
		if o.CompanyID == req.CompanyID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *MemOrders) ListPurchaseOrders(_ context.Context, req orders.ListOrdersRequest) ([]orders.PurchaseOrder, error) {
	var out []orders.PurchaseOrder
	for _, o := range m.PurchaseOrders {
		if o.CompanyID == req.CompanyID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *MemOrders) FindSalesOrdersByReference(_ context.Context, reference string) ([]orders.SalesOrder, error) {
	var out []orders.SalesOrder
	for _, o := range m.SalesOrders {
		if o.ReferenceNumber != nil && *o.ReferenceNumber == reference {
			cp := *o
			cp.Lines = append([]orders.SalesOrderLine(nil), o.Lines...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *MemOrders) FindPurchaseOrdersByReference(_ context.Context, reference string) ([]orders.PurchaseOrder, error) {
	var out []orders.PurchaseOrder
	for _, o := range m.PurchaseOrders {
		if o.ReferenceNumber != nil && *o.ReferenceNumber == reference {
			cp := *o
			cp.Lines = append([]orders.PurchaseOrderLine(nil), o.Lines...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *MemOrders) InsertSalesOrder(_ context.Context, order *orders.SalesOrder) (int64, error) {
	cp := *order
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	m.SalesOrders[cp.ID] = &cp
	return cp.ID, nil
}

func (m *MemOrders) InsertSalesOrderLine(_ context.Context, line *orders.SalesOrderLine) (int64, error) {
	o, ok := m.SalesOrders[line.SalesOrderID]
	if !ok {
		return 0, orders.ErrNotFound
	}
	cp := *line
	cp.ID = m.id()
	o.Lines = append(o.Lines, cp)
	return cp.ID, nil
}

func (m *MemOrders) InsertPurchaseOrder(_ context.Context, order *orders.PurchaseOrder) (int64, error) {
	cp := *order
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	m.PurchaseOrders[cp.ID] = &cp
	return cp.ID, nil
}

func (m *MemOrders) InsertPurchaseOrderLine(_ context.Context, line *orders.PurchaseOrderLine) (int64, error) {
	o, ok := m.PurchaseOrders[line.PurchaseOrderID]
	if !ok {
		return 0, orders.ErrNotFound
	}
	cp := *line
	cp.ID = m.id()
	o.Lines = append(o.Lines, cp)
	return cp.ID, nil
}

func (m *MemOrders) SetSalesOrderStatus(_ context.Context, id int64, status orders.SalesOrderStatus) error {
	o, ok := m.SalesOrders[id]
	if !ok {
		return fmt.Errorf("sales order %d: %w", id, orders.ErrNotFound)
	}
	o.Status = status
	return nil
}

func (m *MemOrders) SetPurchaseOrderStatus(_ context.Context, id int64, status orders.PurchaseOrderStatus) error {
	o, ok := m.PurchaseOrders[id]
	if !ok {
		return fmt.Errorf("purchase order %d: %w", id, orders.ErrNotFound)
	}
	o.Status = status
	return nil
}

func (m *MemOrders) UpdateSalesOrderLineInvoiced(_ context.Context, lineID int64, invoicedQty decimal.Decimal, fully bool) error {
	for _, o := range m.SalesOrders {
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				o.Lines[i].InvoicedQuantity = invoicedQty
				o.Lines[i].FullyInvoiced = fully
				return nil
			}
		}
	}
	return fmt.Errorf("sales order line %d: %w", lineID, orders.ErrNotFound)
}

func (m *MemOrders) GenerateSalesOrderNumber(_ context.Context, companyID int64, date time.Time) (string, error) {
	var nums []string
	for _, o := range m.SalesOrders {
		if o.CompanyID == companyID {
			nums = append(nums, o.DocNumber)
		}
	}
	return docNumber("SO", date, nums), nil
}

func (m *MemOrders) GeneratePurchaseOrderNumber(_ context.Context, companyID int64, date time.Time) (string, error) {
	var nums []string
	for _, o := range m.PurchaseOrders {
		if o.CompanyID == companyID {
			nums = append(nums, o.DocNumber)
		}
	}
	return docNumber("PO", date, nums), nil
}

// docNumber mirrors the SQL generators: the next number is one past the
// highest existing suffix for the company, so deletions never recycle a
// number.
func docNumber(prefix string, date time.Time, existing []string) string {
	var max int64
	for _, n := range existing {
		parts := strings.Split(n, "-")
		if len(parts) != 3 {
			continue
		}
		if v, err := strconv.ParseInt(parts[2], 10, 64); err == nil && v > max {
			max = v
		}
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format("0601"), max+1)
}

// WithTx satisfies orders.Repository. A failed fn restores the store to
// its pre-transaction state.
func (m *MemOrders) WithTx(ctx context.Context, fn func(context.Context, orders.Store) error) error {
	restore := m.snapshot()
	if err := fn(ctx, m); err != nil {
		restore()
		return err
	}
	return nil
}

var _ orders.Repository = (*MemOrders)(nil)

// snapshot deep-copies the ledger state and returns a closure restoring it.
// The runners use it to roll a failed transaction back.
func (m *MemLedger) snapshot() func() {
	accounts := make(map[int64]*ledger.Account, len(m.Accounts))
	for id, a := range m.Accounts {
		cp := *a
		accounts[id] = &cp
	}
	roles := make(map[int64]map[ledger.AccountRole]string, len(m.Roles))
	for companyID, rm := range m.Roles {
		cp := make(map[ledger.AccountRole]string, len(rm))
		for role, code := range rm {
			cp[role] = code
		}
		roles[companyID] = cp
	}
	entries := make([]*ledger.JournalEntry, len(m.Entries))
	for i, e := range m.Entries {
		cp := *e
		cp.Lines = append([]ledger.JournalLine(nil), e.Lines...)
		entries[i] = &cp
	}
	seq := make(map[int64]int64, len(m.seq))
	for companyID, n := range m.seq {
		seq[companyID] = n
	}
	nextID := m.nextID
	return func() {
		m.Accounts = accounts
		m.Roles = roles
		m.Entries = entries
		m.seq = seq
		m.nextID = nextID
	}
}

func (m *MemOrders) snapshot() func() {
	sos := make(map[int64]*orders.SalesOrder, len(m.SalesOrders))
	for id, o := range m.SalesOrders {
		cp := *o
		cp.Lines = append([]orders.SalesOrderLine(nil), o.Lines...)
		sos[id] = &cp
	}
	pos := make(map[int64]*orders.PurchaseOrder, len(m.PurchaseOrders))
	for id, o := range m.PurchaseOrders {
		cp := *o
		cp.Lines = append([]orders.PurchaseOrderLine(nil), o.Lines...)
		pos[id] = &cp
	}
	nextID := m.nextID
	return func() {
		m.SalesOrders = sos
		m.PurchaseOrders = pos
		m.nextID = nextID
	}
}
