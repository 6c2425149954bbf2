package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/internal/testkit"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	billing *testkit.MemBilling
	orders  *testkit.MemOrders
	ledger  *testkit.MemLedger
	svc     *billing.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		billing: testkit.NewMemBilling(),
		orders:  testkit.NewMemOrders(),
		ledger:  testkit.NewMemLedger(),
	}
	runner := &testkit.BillingRunner{Stores: billing.Stores{
		Billing: f.billing,
		Orders:  f.orders,
		Ledger:  f.ledger,
	}}
	f.svc = billing.NewService(runner, f.billing, nil)
	f.svc.WithNow(func() time.Time { return time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC) })
	return f
}

func (f *fixture) seedOrder(t *testing.T, companyID int64, total string) *orders.SalesOrder {
	t.Helper()
	id, err := f.orders.InsertSalesOrder(context.Background(), &orders.SalesOrder{
		CompanyID:  companyID,
		CustomerID: 10,
		DocNumber:  "SO-2606-0001",
		Status:     orders.SalesOrderStatusConfirmed,
		Total:      d(total),
	})
	require.NoError(t, err)
	order, err := f.orders.GetSalesOrder(context.Background(), id)
	require.NoError(t, err)
	return order
}

func (f *fixture) seedInvoice(t *testing.T, companyID, orderID int64, total string) *billing.Invoice {
	t.Helper()
	id, err := f.billing.InsertInvoice(context.Background(), &billing.Invoice{
		CompanyID:    companyID,
		CustomerID:   10,
		SalesOrderID: orderID,
		DocNumber:    "INV-2606-0001",
		Status:       billing.StatusOpen,
		Total:        d(total),
		AmountPaid:   decimal.Zero,
		BalanceDue:   d(total),
	})
	require.NoError(t, err)
	inv, err := f.billing.GetInvoice(context.Background(), id)
	require.NoError(t, err)
	return inv
}

func (f *fixture) accounts(companyID int64) (cash, ar *ledger.Account) {
	f.ledger.SeedStandardChart(companyID)
	for _, a := range f.ledger.Accounts {
		if a.CompanyID != companyID {
			continue
		}
		switch a.Code {
		case "1000":
			cash = a
		case "1100":
			ar = a
		}
	}
	return cash, ar
}

func TestPaymentTotals(t *testing.T) {
	cases := []struct {
		name       string
		total      string
		paid       string
		current    billing.DocumentStatus
		wantBal    string
		wantStatus billing.DocumentStatus
	}{
		{"fully paid", "400", "400", billing.StatusOpen, "0", billing.StatusPaid},
		{"overpaid", "400", "500", billing.StatusPartial, "-100", billing.StatusPaid},
		{"partial", "400", "150", billing.StatusOpen, "250", billing.StatusPartial},
		{"nothing paid", "400", "0", billing.StatusOpen, "400", billing.StatusOpen},
		{"void untouched", "400", "400", billing.StatusVoid, "0", billing.StatusVoid},
		{"paid never downgraded", "400", "100", billing.StatusPaid, "300", billing.StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bal, status := billing.PaymentTotals(d(tc.total), d(tc.paid), tc.current)
			require.True(t, bal.Equal(d(tc.wantBal)), "balance %s", bal)
			require.Equal(t, tc.wantStatus, status)
		})
	}
}

func TestCreateReceiptPostsJournalAndSettles(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 7, "400")
	invoice := f.seedInvoice(t, 7, order.ID, "400")
	cash, ar := f.accounts(7)

	result, err := f.svc.CreateReceipt(context.Background(), billing.CreateReceiptRequest{
		CompanyID:       7,
		SalesOrderID:    order.ID,
		InvoiceID:       &invoice.ID,
		CustomerID:      10,
		DebitAccountID:  cash.ID,
		CreditAccountID: ar.ID,
		Amount:          d("400"),
		PaymentMethod:   "bank_transfer",
	})
	require.NoError(t, err)
	require.NotZero(t, result.JournalEntryID)
	require.Equal(t, result.JournalEntryID, result.Receipt.JournalEntryID)

	require.NotNil(t, result.Invoice)
	require.Equal(t, billing.StatusPaid, result.Invoice.Status)
	require.True(t, result.Invoice.BalanceDue.IsZero())
	require.True(t, result.Invoice.AmountPaid.Equal(d("400")))

	entries := f.ledger.EntriesFor(7)
	require.Len(t, entries, 1)
	require.Equal(t, "JE000001", entries[0].Number)
	require.Len(t, entries[0].Lines, 2)
	require.True(t, entries[0].Lines[0].Debit.Equal(d("400")))
	require.True(t, entries[0].Lines[1].Credit.Equal(d("400")))

	// Cash up, receivable down.
	require.True(t, f.ledger.Accounts[cash.ID].Balance.Equal(d("400")))
	require.True(t, f.ledger.Accounts[ar.ID].Balance.Equal(d("-400")))

	updated, err := f.orders.GetSalesOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, orders.SalesOrderStatusPaid, updated.Status)
}

func TestCreateReceiptPartialAmount(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 7, "400")
	invoice := f.seedInvoice(t, 7, order.ID, "400")
	cash, ar := f.accounts(7)

	result, err := f.svc.CreateReceipt(context.Background(), billing.CreateReceiptRequest{
		CompanyID:       7,
		SalesOrderID:    order.ID,
		InvoiceID:       &invoice.ID,
		CustomerID:      10,
		DebitAccountID:  cash.ID,
		CreditAccountID: ar.ID,
		Amount:          d("150"),
	})
	require.NoError(t, err)
	require.Equal(t, billing.StatusPartial, result.Invoice.Status)
	require.True(t, result.Invoice.BalanceDue.Equal(d("250")))

	updated, err := f.orders.GetSalesOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, orders.SalesOrderStatusPartial, updated.Status)
}

func TestCreateReceiptValidatesBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateReceipt(context.Background(), billing.CreateReceiptRequest{
		CompanyID:    7,
		SalesOrderID: 1,
		CustomerID:   10,
		Amount:       d("100"),
	})
	require.ErrorIs(t, err, billing.ErrMissingField)

	_, err = f.svc.CreateReceipt(context.Background(), billing.CreateReceiptRequest{
		CompanyID:       7,
		SalesOrderID:    1,
		CustomerID:      10,
		DebitAccountID:  1,
		CreditAccountID: 2,
		Amount:          decimal.Zero,
	})
	require.ErrorIs(t, err, billing.ErrInvalidAmount)
	require.Empty(t, f.ledger.Entries, "no journal may exist after rejected input")
	require.Empty(t, f.billing.Receipts)
}

func TestCreateReceiptUnknownAccountFails(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 7, "400")

	_, err := f.svc.CreateReceipt(context.Background(), billing.CreateReceiptRequest{
		CompanyID:       7,
		SalesOrderID:    order.ID,
		CustomerID:      10,
		DebitAccountID:  12345,
		CreditAccountID: 67890,
		Amount:          d("100"),
	})
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
	require.Empty(t, f.billing.Receipts)
}

func TestCreateReceiptNeverDowngradesTerminalOrder(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 7, "400")
	require.NoError(t, f.orders.SetSalesOrderStatus(context.Background(), order.ID, orders.SalesOrderStatusCancelled))
	cash, ar := f.accounts(7)

	_, err := f.svc.CreateReceipt(context.Background(), billing.CreateReceiptRequest{
		CompanyID:       7,
		SalesOrderID:    order.ID,
		CustomerID:      10,
		DebitAccountID:  cash.ID,
		CreditAccountID: ar.ID,
		Amount:          d("400"),
	})
	require.NoError(t, err)

	updated, err := f.orders.GetSalesOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, orders.SalesOrderStatusCancelled, updated.Status)
}

func TestCreatePaymentSettlesBill(t *testing.T) {
	f := newFixture(t)
	poID, err := f.orders.InsertPurchaseOrder(context.Background(), &orders.PurchaseOrder{
		CompanyID:  8,
		SupplierID: 7,
		DocNumber:  "PO-2606-0001",
		Status:     orders.PurchaseOrderStatusApproved,
		Total:      d("400"),
	})
	require.NoError(t, err)
	billID, err := f.billing.InsertBill(context.Background(), &billing.Bill{
		CompanyID:       8,
		SupplierID:      7,
		PurchaseOrderID: poID,
		DocNumber:       "BILL-2606-0001",
		Status:          billing.StatusOpen,
		Total:           d("400"),
		BalanceDue:      d("400"),
	})
	require.NoError(t, err)
	f.ledger.SeedStandardChart(8)
	var ap, cash *ledger.Account
	for _, a := range f.ledger.Accounts {
		if a.CompanyID != 8 {
			continue
		}
		switch a.Code {
		case "2000":
			ap = a
		case "1000":
			cash = a
		}
	}

	result, err := f.svc.CreatePayment(context.Background(), billing.CreatePaymentRequest{
		CompanyID:       8,
		PurchaseOrderID: poID,
		BillID:          &billID,
		SupplierID:      7,
		DebitAccountID:  ap.ID,
		CreditAccountID: cash.ID,
		Amount:          d("400"),
	})
	require.NoError(t, err)
	require.Equal(t, billing.StatusPaid, result.Bill.Status)
	require.True(t, result.Bill.BalanceDue.IsZero())

	// Payable shrinks, cash shrinks.
	require.True(t, f.ledger.Accounts[ap.ID].Balance.Equal(d("-400")))
	require.True(t, f.ledger.Accounts[cash.ID].Balance.Equal(d("-400")))
}

func TestVoidInvoiceTransitions(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 7, "400")
	invoice := f.seedInvoice(t, 7, order.ID, "400")

	voided, err := f.svc.VoidInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Equal(t, billing.StatusVoid, voided.Status)

	// VOID is terminal.
	_, err = f.svc.VoidInvoice(context.Background(), invoice.ID)
	require.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestMarkOverdueFlipsPastDue(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, 7, "400")
	inv := f.seedInvoice(t, 7, order.ID, "400")
	f.billing.Invoices[inv.ID].DueDate = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	n, err := f.billing.MarkOverdue(context.Background(), time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	updated, err := f.billing.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, billing.StatusOverdue, updated.Status)
}

func TestAgingSummaryBucketsByDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asOf := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)

	seed := func(due time.Time, balance string, status billing.DocumentStatus) {
		_, err := f.billing.InsertInvoice(ctx, &billing.Invoice{
			CompanyID:    1,
			CustomerID:   10,
			SalesOrderID: 1,
			Status:       status,
			Total:        d(balance),
			AmountPaid:   decimal.Zero,
			BalanceDue:   d(balance),
			DueDate:      due,
		})
		require.NoError(t, err)
	}
	seed(asOf.AddDate(0, 0, 10), "100", billing.StatusOpen)    // not yet due
	seed(asOf.AddDate(0, 0, -5), "50", billing.StatusOverdue)  // 1-30
	seed(asOf.AddDate(0, 0, -45), "70", billing.StatusOverdue) // 31-60
	seed(asOf.AddDate(0, 0, -80), "30", billing.StatusPartial) // 61-90
	seed(asOf.AddDate(0, 0, -200), "20", billing.StatusOverdue)
	seed(asOf.AddDate(0, 0, -200), "999", billing.StatusPaid) // excluded

	summary, err := f.svc.AgingSummary(ctx, 1, asOf)
	require.NoError(t, err)
	require.True(t, summary.Current.Equal(d("100")))
	require.True(t, summary.Days30.Equal(d("50")))
	require.True(t, summary.Days60.Equal(d("70")))
	require.True(t, summary.Days90.Equal(d("30")))
	require.True(t, summary.Over90.Equal(d("20")))
	require.True(t, summary.Total.Equal(d("270")))
}

func TestAgingSummaryIgnoresOtherCompanies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asOf := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)

	_, err := f.billing.InsertInvoice(ctx, &billing.Invoice{
		CompanyID: 2, CustomerID: 10, SalesOrderID: 1,
		Status: billing.StatusOpen, Total: d("40"),
		AmountPaid: decimal.Zero, BalanceDue: d("40"),
		DueDate: asOf.AddDate(0, 0, -10),
	})
	require.NoError(t, err)

	summary, err := f.svc.AgingSummary(ctx, 1, asOf)
	require.NoError(t, err)
	require.True(t, summary.Total.IsZero())
}
