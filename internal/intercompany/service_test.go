package intercompany_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/company"
	"github.com/crossbooks/crossbooks/internal/fulfillment"
	"github.com/crossbooks/crossbooks/internal/intercompany"
	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/shared"
	"github.com/crossbooks/crossbooks/internal/testkit"
)

const (
	sourceCo int64 = 1
	targetCo int64 = 2
)

type fixture struct {
	ledger    *testkit.MemLedger
	orders    *testkit.MemOrders
	billing   *testkit.MemBilling
	companies *testkit.MemCompany
	ic        *testkit.MemIC
	idem      *memIdem
	svc       *intercompany.Service
}

// memIdem is an in-memory stand-in for the idempotency key store.
type memIdem struct {
	keys map[string]bool
}

func (m *memIdem) CheckAndInsert(_ context.Context, key, operation string) error {
	k := operation + ":" + key
	if m.keys[k] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = true
	return nil
}

func (m *memIdem) Delete(_ context.Context, key string) error {
	for k := range m.keys {
		if strings.HasSuffix(k, ":"+key) {
			delete(m.keys, k)
		}
	}
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:    testkit.NewMemLedger(),
		orders:    testkit.NewMemOrders(),
		billing:   testkit.NewMemBilling(),
		companies: testkit.NewMemCompany(),
		ic:        testkit.NewMemIC(),
		idem:      &memIdem{keys: map[string]bool{}},
	}
	f.companies.Add(company.Company{ID: sourceCo, TenantID: 1, Name: "Alpha Trading", Kind: company.KindManufacturer, BaseCurrency: "USD"})
	f.companies.Add(company.Company{ID: targetCo, TenantID: 1, Name: "Beta Logistics", Kind: company.KindDistributor, BaseCurrency: "USD"})
	f.ledger.SeedStandardChart(sourceCo)
	f.ledger.SeedStandardChart(targetCo)
	f.billing.Products[10] = "Steel Beams"
	f.billing.Products[11] = "Rivets"

	stores := intercompany.Stores{
		IC:      f.ic,
		Billing: f.billing,
		Orders:  f.orders,
		Ledger:  f.ledger,
		Company: f.companies,
	}
	f.svc = intercompany.NewService(intercompany.ServiceConfig{
		Tx:           &testkit.ICRunner{Stores: stores},
		Transactions: f.ic,
		Companies:    f.companies,
		Orders:       f.orders,
		Billing:      f.billing,
		Idempotency:  f.idem,
	})
	f.svc.WithNow(func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) })
	return f
}

func strp(s string) *string { return &s }

func (f *fixture) createPair(t *testing.T, ref string) *intercompany.OrderPairResult {
	t.Helper()
	result, err := f.svc.CreateOrderPair(context.Background(), intercompany.CreateOrderPairRequest{
		SourceCompanyID: sourceCo,
		TargetCompanyID: targetCo,
		ReferenceNumber: strp(ref),
		Products: []intercompany.ProductLine{
			{ProductID: 10, Quantity: "10", UnitPrice: "35.00"},
			{ProductID: 11, Quantity: 5, UnitPrice: "10.00"},
		},
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) accountBalance(t *testing.T, companyID int64, code string) decimal.Decimal {
	t.Helper()
	acc, err := f.ledger.GetAccountByCode(context.Background(), companyID, code)
	require.NoError(t, err)
	return acc.Balance
}

func requireBalanced(t *testing.T, entry *ledger.JournalEntry) {
	t.Helper()
	debits, credits := decimal.Zero, decimal.Zero
	for _, line := range entry.Lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	require.True(t, debits.Equal(credits), "entry %s: debits %s != credits %s", entry.Number, debits, credits)
	require.True(t, debits.IsPositive())
}

func TestCreateOrderPair(t *testing.T) {
	f := newFixture(t)
	result := f.createPair(t, "REF-1")

	require.Equal(t, "REF-1", result.ReferenceNumber)
	require.Equal(t, sourceCo, result.SalesOrder.CompanyID)
	require.Equal(t, targetCo, result.SalesOrder.CustomerID)
	require.Equal(t, orders.SalesOrderStatusConfirmed, result.SalesOrder.Status)
	require.Equal(t, targetCo, result.PurchaseOrder.CompanyID)
	require.Equal(t, sourceCo, result.PurchaseOrder.SupplierID)
	require.Equal(t, orders.PurchaseOrderStatusApproved, result.PurchaseOrder.Status)
	require.True(t, result.SalesOrder.Total.Equal(decimal.NewFromInt(400)), "10x35 + 5x10")
	require.True(t, result.PurchaseOrder.Total.Equal(result.SalesOrder.Total))
	require.Equal(t, "REF-1", *result.PurchaseOrder.ReferenceNumber)

	txn, err := f.svc.GetTransaction(context.Background(), result.TransactionID)
	require.NoError(t, err)
	require.Equal(t, intercompany.StatusPending, txn.Status)
	require.Equal(t, intercompany.PaymentPending, txn.PaymentStatus)
	require.Equal(t, result.SalesOrder.ID, *txn.SourceOrderID)
	require.Equal(t, result.PurchaseOrder.ID, *txn.TargetOrderID)
}

func TestCreateOrderPairRejectsSameCompany(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrderPair(context.Background(), intercompany.CreateOrderPairRequest{
		SourceCompanyID: sourceCo,
		TargetCompanyID: sourceCo,
		Products:        []intercompany.ProductLine{{ProductID: 10, Quantity: 1, UnitPrice: "1.00"}},
	})
	require.ErrorIs(t, err, company.ErrSameCompany)
}

func TestCreateOrderPairRejectsBadQuantity(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrderPair(context.Background(), intercompany.CreateOrderPairRequest{
		SourceCompanyID: sourceCo,
		TargetCompanyID: targetCo,
		Products:        []intercompany.ProductLine{{ProductID: 10, Quantity: "lots", UnitPrice: "1.00"}},
	})
	require.ErrorIs(t, err, fulfillment.ErrQuantityInvalid)
	require.Empty(t, f.ic.Txns, "nothing may persist when parsing fails")
}

func TestCreateInvoiceFull(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-1")

	result, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	require.NoError(t, err)

	require.Equal(t, sourceCo, result.Invoice.CompanyID)
	require.Equal(t, targetCo, result.Invoice.CustomerID)
	require.True(t, result.Invoice.Total.Equal(decimal.NewFromInt(400)))
	require.Equal(t, billing.StatusOpen, result.Invoice.Status)
	require.Equal(t, targetCo, result.Bill.CompanyID)
	require.True(t, result.Bill.Total.Equal(decimal.NewFromInt(400)))
	require.NotNil(t, result.Invoice.JournalEntryID)
	require.Equal(t, result.Entries.Source.ID, *result.Invoice.JournalEntryID)
	require.NotNil(t, result.Bill.JournalEntryID)
	require.Equal(t, result.Entries.Target.ID, *result.Bill.JournalEntryID)

	requireBalanced(t, result.Entries.Source)
	requireBalanced(t, result.Entries.Target)

	// Source books: intercompany receivable up, revenue up.
	require.True(t, f.accountBalance(t, sourceCo, "1150").Equal(decimal.NewFromInt(400)))
	require.True(t, f.accountBalance(t, sourceCo, "4000").Equal(decimal.NewFromInt(400)))
	// Target books: expense up, intercompany payable up.
	require.True(t, f.accountBalance(t, targetCo, "5000").Equal(decimal.NewFromInt(400)))
	require.True(t, f.accountBalance(t, targetCo, "2150").Equal(decimal.NewFromInt(400)))

	txn, err := f.svc.GetTransaction(context.Background(), pair.TransactionID)
	require.NoError(t, err)
	require.Equal(t, intercompany.StatusCompleted, txn.Status)
	require.Equal(t, result.Entries.Source.ID, *txn.SourceJournalEntryID)
	require.Equal(t, result.Entries.Target.ID, *txn.TargetJournalEntryID)
	require.Equal(t, result.Invoice.ID, *txn.SourceInvoiceID)
	require.Equal(t, result.Bill.ID, *txn.TargetBillID)
	// Payment state has not moved yet.
	require.Equal(t, intercompany.PaymentPending, txn.PaymentStatus)
}

func TestCreateInvoicePartialThenOverRemaining(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-2")
	lineID := pair.SalesOrder.Lines[0].ID

	partial, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
		Selections: []fulfillment.Selection{
			{ProductID: 10, SOItemID: &lineID, Quantity: "4", UnitPrice: "35.00"},
		},
	})
	require.NoError(t, err)
	require.True(t, partial.Invoice.Total.Equal(decimal.NewFromInt(140)), "4 x 35")

	// 6 remain on the line; asking for 7 names the product and changes
	// nothing.
	_, err = f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
		Selections: []fulfillment.Selection{
			{ProductID: 10, SOItemID: &lineID, Quantity: "7", UnitPrice: "35.00"},
		},
	})
	require.ErrorIs(t, err, fulfillment.ErrQuantityExceedsRemaining)
	var exceeds *fulfillment.QuantityExceedsRemainingError
	require.ErrorAs(t, err, &exceeds)
	require.Equal(t, "Steel Beams", exceeds.ProductName)
	require.True(t, exceeds.Remaining.Equal(decimal.NewFromInt(6)))

	// The exact remainder still goes through.
	rest, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
		Selections: []fulfillment.Selection{
			{ProductID: 10, SOItemID: &lineID, Quantity: "6", UnitPrice: "35.00"},
		},
	})
	require.NoError(t, err)
	require.True(t, rest.Invoice.Total.Equal(decimal.NewFromInt(210)))
}

func TestCreateInvoiceNothingRemaining(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-3")

	_, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	require.ErrorIs(t, err, intercompany.ErrNothingToInvoice)
}

func TestCreateInvoiceCompanyMismatch(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-4")

	_, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    targetCo,
	})
	require.ErrorIs(t, err, intercompany.ErrCompanyMismatch)
}

func TestCreateInvoiceMissingRoleAccount(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-5")

	// Deactivate the target's payable account so role resolution fails.
	for _, acc := range f.ledger.Accounts {
		if acc.CompanyID == targetCo && acc.Code == "2150" {
			delete(f.ledger.Accounts, acc.ID)
		}
	}

	_, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	var missing *ledger.MissingAccountError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "2150", missing.Code)
	require.Equal(t, targetCo, missing.CompanyID)
}

func TestCreateReceiptPayment(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-6")
	inv, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	require.NoError(t, err)

	result, err := f.svc.CreateReceiptPayment(context.Background(), intercompany.CreateReceiptPaymentRequest{
		InvoiceID:     inv.Invoice.ID,
		CompanyID:     sourceCo,
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: "bank_transfer",
	})
	require.NoError(t, err)

	require.Equal(t, sourceCo, result.Receipt.CompanyID)
	require.Equal(t, targetCo, result.Payment.CompanyID)
	require.True(t, result.Receipt.Amount.Equal(decimal.NewFromInt(400)))
	require.Equal(t, result.Entries.Receiving.ID, result.Receipt.JournalEntryID)
	require.Equal(t, result.Entries.Paying.ID, result.Payment.JournalEntryID)
	requireBalanced(t, result.Entries.Receiving)
	requireBalanced(t, result.Entries.Paying)

	require.Equal(t, billing.StatusPaid, result.Invoice.Status)
	require.True(t, result.Invoice.BalanceDue.IsZero())

	// Source (receiving) books: cash up 400, receivable relieved.
	require.True(t, f.accountBalance(t, sourceCo, "1000").Equal(decimal.NewFromInt(400)))
	require.True(t, f.accountBalance(t, sourceCo, "1100").Equal(decimal.NewFromInt(-400)))
	// Target (paying) books: payable relieved, cash down 400.
	require.True(t, f.accountBalance(t, targetCo, "2000").Equal(decimal.NewFromInt(-400)))
	require.True(t, f.accountBalance(t, targetCo, "1000").Equal(decimal.NewFromInt(-400)))

	require.NotNil(t, result.Payment.BillID)
	bill, err := f.billing.GetBill(context.Background(), *result.Payment.BillID)
	require.NoError(t, err)
	require.Equal(t, billing.StatusPaid, bill.Status)
	require.True(t, bill.BalanceDue.IsZero())

	order, err := f.orders.GetSalesOrder(context.Background(), pair.SalesOrder.ID)
	require.NoError(t, err)
	require.Equal(t, orders.SalesOrderStatusPaid, order.Status)

	txn, err := f.svc.GetTransaction(context.Background(), pair.TransactionID)
	require.NoError(t, err)
	require.Equal(t, intercompany.PaymentPaid, txn.PaymentStatus)
	require.Equal(t, result.Receipt.ID, *txn.SourceReceiptID)
	require.Equal(t, result.Payment.ID, *txn.TargetPaymentID)
}

func TestCreateReceiptPaymentPartialMovesIndependently(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-7")
	inv, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	require.NoError(t, err)

	result, err := f.svc.CreateReceiptPayment(context.Background(), intercompany.CreateReceiptPaymentRequest{
		InvoiceID:     inv.Invoice.ID,
		CompanyID:     sourceCo,
		Amount:        decimal.NewFromInt(150),
		PaymentMethod: "bank_transfer",
	})
	require.NoError(t, err)
	require.Equal(t, billing.StatusPartial, result.Invoice.Status)
	require.True(t, result.Invoice.BalanceDue.Equal(decimal.NewFromInt(250)))

	txn, err := f.svc.GetTransaction(context.Background(), pair.TransactionID)
	require.NoError(t, err)
	require.Equal(t, intercompany.PaymentPartial, txn.PaymentStatus)
	// Completion status was reached at invoicing and stays put.
	require.Equal(t, intercompany.StatusCompleted, txn.Status)
}

func TestCreateReceiptPaymentRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateReceiptPayment(context.Background(), intercompany.CreateReceiptPaymentRequest{
		InvoiceID: 1,
		CompanyID: sourceCo,
		Amount:    decimal.Zero,
	})
	require.ErrorIs(t, err, intercompany.ErrInvalidAmount)
}

func TestResolveTransactionGroup(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-8")
	inv, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	require.NoError(t, err)
	_, err = f.svc.CreateReceiptPayment(context.Background(), intercompany.CreateReceiptPaymentRequest{
		InvoiceID:     inv.Invoice.ID,
		CompanyID:     sourceCo,
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: "bank_transfer",
	})
	require.NoError(t, err)

	group, err := f.svc.ResolveTransactionGroup(context.Background(), "REF-8")
	require.NoError(t, err)
	require.Len(t, group.SalesOrders, 1)
	require.Len(t, group.PurchaseOrders, 1)
	require.Len(t, group.Invoices, 1)
	require.Len(t, group.Bills, 1)
	require.Len(t, group.Receipts, 1)
	require.Len(t, group.Payments, 1)
	require.Equal(t, "REF-8", group.ReferenceNumber)
}

func TestResolveTransactionGroupEmpty(t *testing.T) {
	f := newFixture(t)
	group, err := f.svc.ResolveTransactionGroup(context.Background(), "REF-NONE")
	require.NoError(t, err)
	require.Empty(t, group.SalesOrders)
	require.Empty(t, group.Invoices)
}

func TestListTransactionsScopedToCompany(t *testing.T) {
	f := newFixture(t)
	f.createPair(t, "REF-9")

	f.companies.Add(company.Company{ID: 3, TenantID: 1, Name: "Gamma Corp", Kind: company.KindPlant, BaseCurrency: "USD"})
	f.ledger.SeedStandardChart(3)

	mine, err := f.svc.ListTransactions(context.Background(), sourceCo)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	other, err := f.svc.ListTransactions(context.Background(), 3)
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestCreateInvoiceDuplicateIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	pairA := f.createPair(t, "REF-20")
	pairB := f.createPair(t, "REF-21")

	_, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID:   pairA.SalesOrder.ID,
		CompanyID:      sourceCo,
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	_, err = f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID:   pairB.SalesOrder.ID,
		CompanyID:      sourceCo,
		IdempotencyKey: "key-1",
	})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, f.billing.Invoices, 1)
}

func TestCreateInvoiceFailedAttemptReleasesKey(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-22")

	// Wrong company fails the workflow; the key must be reusable after.
	_, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID:   pair.SalesOrder.ID,
		CompanyID:      targetCo,
		IdempotencyKey: "key-2",
	})
	require.ErrorIs(t, err, intercompany.ErrCompanyMismatch)

	_, err = f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID:   pair.SalesOrder.ID,
		CompanyID:      sourceCo,
		IdempotencyKey: "key-2",
	})
	require.NoError(t, err)
}

func TestCreateReceiptPaymentDuplicateIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-23")
	invoiced, err := f.svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateReceiptPayment(context.Background(), intercompany.CreateReceiptPaymentRequest{
		InvoiceID:      invoiced.Invoice.ID,
		CompanyID:      sourceCo,
		Amount:         decimal.NewFromInt(100),
		IdempotencyKey: "key-3",
	})
	require.NoError(t, err)

	_, err = f.svc.CreateReceiptPayment(context.Background(), intercompany.CreateReceiptPaymentRequest{
		InvoiceID:      invoiced.Invoice.ID,
		CompanyID:      sourceCo,
		Amount:         decimal.NewFromInt(100),
		IdempotencyKey: "key-3",
	})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, f.billing.Receipts, 1)
}

// flakyLedger fails the nth journal entry insert, standing in for a
// mid-transaction storage error.
type flakyLedger struct {
	*testkit.MemLedger
	failOn  int
	inserts int
}

func (f *flakyLedger) InsertEntry(ctx context.Context, entry *ledger.JournalEntry) (int64, error) {
	f.inserts++
	if f.inserts == f.failOn {
		return 0, errors.New("journal storage offline")
	}
	return f.MemLedger.InsertEntry(ctx, entry)
}

func TestCreateInvoiceSecondPostingFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	pair := f.createPair(t, "REF-ATOMIC")

	flaky := &flakyLedger{MemLedger: f.ledger, failOn: 2}
	svc := intercompany.NewService(intercompany.ServiceConfig{
		Tx: &testkit.ICRunner{Stores: intercompany.Stores{
			IC:      f.ic,
			Billing: f.billing,
			Orders:  f.orders,
			Ledger:  flaky,
			Company: f.companies,
		}},
		Transactions: f.ic,
		Companies:    f.companies,
		Orders:       f.orders,
		Billing:      f.billing,
		Idempotency:  f.idem,
	})

	_, err := svc.CreateInvoice(context.Background(), intercompany.CreateInvoiceRequest{
		SalesOrderID: pair.SalesOrder.ID,
		CompanyID:    sourceCo,
	})
	require.Error(t, err)
	require.Equal(t, 2, flaky.inserts, "the target-side posting failed")

	// Half-done work must not survive: no entries, no documents, clean
	// balances, untouched order lines, and the transaction still pending.
	require.Empty(t, f.ledger.Entries)
	require.Empty(t, f.billing.Invoices)
	require.Empty(t, f.billing.Bills)
	require.True(t, f.accountBalance(t, sourceCo, "1150").IsZero())
	require.True(t, f.accountBalance(t, sourceCo, "4000").IsZero())
	require.True(t, f.accountBalance(t, targetCo, "5000").IsZero())
	require.True(t, f.accountBalance(t, targetCo, "2150").IsZero())

	so, err := f.orders.GetSalesOrder(context.Background(), pair.SalesOrder.ID)
	require.NoError(t, err)
	for _, line := range so.Lines {
		require.True(t, line.InvoicedQuantity.IsZero())
		require.False(t, line.FullyInvoiced)
	}

	txn, err := f.ic.GetTransaction(context.Background(), pair.TransactionID)
	require.NoError(t, err)
	require.Equal(t, intercompany.StatusPending, txn.Status)
	require.Nil(t, txn.SourceInvoiceID)
	require.Nil(t, txn.TargetBillID)
}
