package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/orders"
)

// Document numbers must advance past the highest existing suffix, not the
// row count, so a deleted document never frees its number for reuse.
func TestDocNumbersAdvancePastHighestExisting(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	mo := NewMemOrders()
	_, err := mo.InsertSalesOrder(ctx, &orders.SalesOrder{CompanyID: 1, DocNumber: "SO-2605-0007"})
	require.NoError(t, err)

	num, err := mo.GenerateSalesOrderNumber(ctx, 1, date)
	require.NoError(t, err)
	require.Equal(t, "SO-2606-0008", num)

	// Another company keeps its own sequence.
	num, err = mo.GenerateSalesOrderNumber(ctx, 2, date)
	require.NoError(t, err)
	require.Equal(t, "SO-2606-0001", num)

	mb := NewMemBilling()
	_, err = mb.InsertInvoice(ctx, &billing.Invoice{CompanyID: 1, DocNumber: "INV-2606-0003"})
	require.NoError(t, err)

	num, err = mb.GenerateInvoiceNumber(ctx, 1, date)
	require.NoError(t, err)
	require.Equal(t, "INV-2606-0004", num)
}
