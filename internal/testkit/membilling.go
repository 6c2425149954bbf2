package testkit

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/company"
	"github.com/crossbooks/crossbooks/internal/fulfillment"
)

// MemBilling is an in-memory billing.Store.
type MemBilling struct {
	Invoices map[int64]*billing.Invoice
	Bills    map[int64]*billing.Bill
	Receipts map[int64]*billing.Receipt
	Payments map[int64]*billing.Payment
	Products map[int64]string
	nextID   int64
}

// NewMemBilling builds an empty billing store.
func NewMemBilling() *MemBilling {
	return &MemBilling{
		Invoices: make(map[int64]*billing.Invoice),
		Bills:    make(map[int64]*billing.Bill),
		Receipts: make(map[int64]*billing.Receipt),
		Payments: make(map[int64]*billing.Payment),
		Products: make(map[int64]string),
	}
}

func (m *MemBilling) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemBilling) GetInvoice(_ context.Context, id int64) (*billing.Invoice, error) {
	inv, ok := m.Invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	cp := *inv
	cp.Items = append([]billing.InvoiceItem(nil), inv.Items...)
	return &cp, nil
}

func (m *MemBilling) GetBill(_ context.Context, id int64) (*billing.Bill, error) {
	b, ok := m.Bills[id]
	if !ok {
		return nil, fmt.Errorf("bill %d: %w", id, billing.ErrNotFound)
	}
	cp := *b
	cp.Items = append([]billing.BillItem(nil), b.Items...)
	return &cp, nil
}

func (m *MemBilling) ListInvoices(_ context.Context, req billing.ListDocumentsRequest) ([]billing.Invoice, error) {
	var out []billing.Invoice
	for _, inv := range m.Invoices {
		if inv.CompanyID == req.CompanyID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *MemBilling) ListBills(_ context.Context, req billing.ListDocumentsRequest) ([]billing.Bill, error) {
	var out []billing.Bill
	for _, b := range m.Bills {
		if b.CompanyID == req.CompanyID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *MemBilling) FindInvoicesByReference(_ context.Context, reference string) ([]billing.Invoice, error) {
	var out []billing.Invoice
	for _, inv := range m.Invoices {
		if inv.ReferenceNumber != nil && *inv.ReferenceNumber == reference {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *MemBilling) FindBillsByReference(_ context.Context, reference string) ([]billing.Bill, error) {
	var out []billing.Bill
	for _, b := range m.Bills {
		if b.ReferenceNumber != nil && *b.ReferenceNumber == reference {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *MemBilling) FindReceiptsByReference(_ context.Context, reference string) ([]billing.Receipt, error) {
	var out []billing.Receipt
	for _, r := range m.Receipts {
		if r.ReferenceNumber != nil && *r.ReferenceNumber == reference {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *MemBilling) FindPaymentsByReference(_ context.Context, reference string) ([]billing.Payment, error) {
	var out []billing.Payment
	for _, p := range m.Payments {
		if p.ReferenceNumber != nil && *p.ReferenceNumber == reference {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MemBilling) InsertInvoice(_ context.Context, inv *billing.Invoice) (int64, error) {
	cp := *inv
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	m.Invoices[cp.ID] = &cp
	return cp.ID, nil
}

func (m *MemBilling) InsertInvoiceItem(_ context.Context, item *billing.InvoiceItem) (int64, error) {
	inv, ok := m.Invoices[item.InvoiceID]
	if !ok {
		return 0, billing.ErrNotFound
	}
	cp := *item
	cp.ID = m.id()
	inv.Items = append(inv.Items, cp)
	return cp.ID, nil
}

func (m *MemBilling) InsertBill(_ context.Context, bill *billing.Bill) (int64, error) {
	cp := *bill
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	m.Bills[cp.ID] = &cp
	return cp.ID, nil
}

func (m *MemBilling) InsertBillItem(_ context.Context, item *billing.BillItem) (int64, error) {
	b, ok := m.Bills[item.BillID]
	if !ok {
		return 0, billing.ErrNotFound
	}
	cp := *item
	cp.ID = m.id()
	b.Items = append(b.Items, cp)
	return cp.ID, nil
}

func (m *MemBilling) InsertReceipt(_ context.Context, receipt *billing.Receipt) (int64, error) {
	cp := *receipt
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	m.Receipts[cp.ID] = &cp
	return cp.ID, nil
}

func (m *MemBilling) InsertPayment(_ context.Context, payment *billing.Payment) (int64, error) {
	cp := *payment
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	m.Payments[cp.ID] = &cp
	return cp.ID, nil
}

func (m *MemBilling) SetInvoiceTotals(_ context.Context, id int64, amountPaid, balanceDue decimal.Decimal, status billing.DocumentStatus) error {
	inv, ok := m.Invoices[id]
	if !ok {
		return fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	inv.AmountPaid = amountPaid
	inv.BalanceDue = balanceDue
	inv.Status = status
	return nil
}

func (m *MemBilling) SetBillTotals(_ context.Context, id int64, amountPaid, balanceDue decimal.Decimal, status billing.DocumentStatus) error {
	b, ok := m.Bills[id]
	if !ok {
		return fmt.Errorf("bill %d: %w", id, billing.ErrNotFound)
	}
	b.AmountPaid = amountPaid
	b.BalanceDue = balanceDue
	b.Status = status
	return nil
}

func (m *MemBilling) SetInvoiceStatus(_ context.Context, id int64, status billing.DocumentStatus) error {
	inv, ok := m.Invoices[id]
	if !ok {
		return fmt.Errorf("invoice %d: %w", id, billing.ErrNotFound)
	}
	inv.Status = status
	return nil
}

func (m *MemBilling) SumReceiptsForOrder(_ context.Context, salesOrderID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, r := range m.Receipts {
		if r.SalesOrderID == salesOrderID {
			sum = sum.Add(r.Amount)
		}
	}
	return sum, nil
}

func (m *MemBilling) SumReceiptsForInvoice(_ context.Context, invoiceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, r := range m.Receipts {
		if r.InvoiceID != nil && *r.InvoiceID == invoiceID {
			sum = sum.Add(r.Amount)
		}
	}
	return sum, nil
}

func (m *MemBilling) SumPaymentsForBill(_ context.Context, billID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.Payments {
		if p.BillID != nil && *p.BillID == billID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (m *MemBilling) AppliedQuantities(_ context.Context, salesOrderID int64) ([]fulfillment.AppliedLine, error) {
	var out []fulfillment.AppliedLine
	for _, inv := range m.Invoices {
		if inv.SalesOrderID != salesOrderID || inv.Status == billing.StatusVoid {
			continue
		}
		for _, item := range inv.Items {
			out = append(out, fulfillment.AppliedLine{
				SOItemID:  item.SOItemID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
	}
	return out, nil
}

func (m *MemBilling) ProductName(_ context.Context, productID int64) (string, error) {
	return m.Products[productID], nil
}

func (m *MemBilling) GenerateInvoiceNumber(_ context.Context, companyID int64, date time.Time) (string, error) {
	var nums []string
	for _, inv := range m.Invoices {
		if inv.CompanyID == companyID {
			nums = append(nums, inv.DocNumber)
		}
	}
	return docNumber("INV", date, nums), nil
}

func (m *MemBilling) GenerateBillNumber(_ context.Context, companyID int64, date time.Time) (string, error) {
	var nums []string
	for _, b := range m.Bills {
		if b.CompanyID == companyID {
			nums = append(nums, b.DocNumber)
		}
	}
	return docNumber("BILL", date, nums), nil
}

func (m *MemBilling) GenerateReceiptNumber(_ context.Context, companyID int64, date time.Time) (string, error) {
	var nums []string
	for _, r := range m.Receipts {
		if r.CompanyID == companyID {
			nums = append(nums, r.DocNumber)
		}
	}
	return docNumber("RCPT", date, nums), nil
}

func (m *MemBilling) GeneratePaymentNumber(_ context.Context, companyID int64, date time.Time) (string, error) {
	var nums []string
	for _, p := range m.Payments {
		if p.CompanyID == companyID {
			nums = append(nums, p.DocNumber)
		}
	}
	return docNumber("PAY", date, nums), nil
}

func (m *MemBilling) MarkOverdue(_ context.Context, asOf time.Time) (int64, error) {
	var n int64
	for _, inv := range m.Invoices {
		if (inv.Status == billing.StatusOpen || inv.Status == billing.StatusPartial) && inv.DueDate.Before(asOf) {
			inv.Status = billing.StatusOverdue
			n++
		}
	}
	return n, nil
}

func (m *MemBilling) OutstandingInvoices(_ context.Context, companyID int64) ([]billing.Invoice, error) {
	var out []billing.Invoice
	for _, inv := range m.Invoices {
		if inv.CompanyID != companyID || !inv.BalanceDue.IsPositive() {
			continue
		}
		switch inv.Status {
		case billing.StatusOpen, billing.StatusPartial, billing.StatusOverdue:
			out = append(out, *inv)
		}
	}
	return out, nil
}

var _ billing.Store = (*MemBilling)(nil)

// MemCompany is an in-memory company.Store.
type MemCompany struct {
	Companies map[int64]*company.Company
}

// NewMemCompany builds an empty company store.
func NewMemCompany() *MemCompany {
	return &MemCompany{Companies: make(map[int64]*company.Company)}
}

// Add registers a company.
func (m *MemCompany) Add(c company.Company) {
	cp := c
	m.Companies[c.ID] = &cp
}

func (m *MemCompany) Get(_ context.Context, id int64) (*company.Company, error) {
	c, ok := m.Companies[id]
	if !ok {
		return nil, fmt.Errorf("company %d: %w", id, company.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *MemCompany) List(_ context.Context, tenantID int64) ([]company.Company, error) {
	var out []company.Company
	for _, c := range m.Companies {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

var _ company.Store = (*MemCompany)(nil)

// BillingRunner satisfies billing.TxRunner over the in-memory stores.
type BillingRunner struct {
	Stores billing.Stores
}

// RunInTx hands the shared stores to fn; a failed fn restores every store
// to its pre-transaction state.
func (r *BillingRunner) RunInTx(ctx context.Context, fn func(context.Context, billing.Stores) error) error {
	restore := snapshotAll(r.Stores.Billing, r.Stores.Orders, r.Stores.Ledger)
	if err := fn(ctx, r.Stores); err != nil {
		restore()
		return err
	}
	return nil
}

var _ billing.TxRunner = (*BillingRunner)(nil)

func (m *MemBilling) snapshot() func() {
	invoices := make(map[int64]*billing.Invoice, len(m.Invoices))
	for id, inv := range m.Invoices {
		cp := *inv
		cp.Items = append([]billing.InvoiceItem(nil), inv.Items...)
		invoices[id] = &cp
	}
	bills := make(map[int64]*billing.Bill, len(m.Bills))
	for id, b := range m.Bills {
		cp := *b
		cp.Items = append([]billing.BillItem(nil), b.Items...)
		bills[id] = &cp
	}
	receipts := make(map[int64]*billing.Receipt, len(m.Receipts))
	for id, r := range m.Receipts {
		cp := *r
		receipts[id] = &cp
	}
	payments := make(map[int64]*billing.Payment, len(m.Payments))
	for id, p := range m.Payments {
		cp := *p
		payments[id] = &cp
	}
	products := make(map[int64]string, len(m.Products))
	for id, name := range m.Products {
		products[id] = name
	}
	nextID := m.nextID
	return func() {
		m.Invoices = invoices
		m.Bills = bills
		m.Receipts = receipts
		m.Payments = payments
		m.Products = products
		m.nextID = nextID
	}
}

func (m *MemCompany) snapshot() func() {
	companies := make(map[int64]*company.Company, len(m.Companies))
	for id, c := range m.Companies {
		cp := *c
		companies[id] = &cp
	}
	return func() { m.Companies = companies }
}
