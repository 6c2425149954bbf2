package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	salesOrders    map[int64]*SalesOrder
	purchaseOrders map[int64]*PurchaseOrder
	nextID         int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		salesOrders:    make(map[int64]*SalesOrder),
		purchaseOrders: make(map[int64]*PurchaseOrder),
		nextID:         0,
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) GetSalesOrder(_ context.Context, id int64) (*SalesOrder, error) {
	o, ok := f.salesOrders[id]
	if !ok {
		return nil, fmt.Errorf("sales order %d: %w", id, ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) GetPurchaseOrder(_ context.Context, id int64) (*PurchaseOrder, error) {
	o, ok := f.purchaseOrders[id]
	if !ok {
		return nil, fmt.Errorf("purchase order %d: %w", id, ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) ListSalesOrders(_ context.Context, req ListOrdersRequest) ([]SalesOrder, error) {
	var out []SalesOrder
	for _, o := range f.salesOrders {
		if o.CompanyID == req.CompanyID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPurchaseOrders(_ context.Context, req ListOrdersRequest) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, o := range f.purchaseOrders {
		if o.CompanyID == req.CompanyID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindSalesOrdersByReference(_ context.Context, reference string) ([]SalesOrder, error) {
	var out []SalesOrder
	for _, o := range f.salesOrders {
		if o.ReferenceNumber != nil && *o.ReferenceNumber == reference {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindPurchaseOrdersByReference(_ context.Context, reference string) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, o := range f.purchaseOrders {
		if o.ReferenceNumber != nil && *o.ReferenceNumber == reference {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertSalesOrder(_ context.Context, order *SalesOrder) (int64, error) {
	cp := *order
	cp.ID = f.id()
	cp.CreatedAt = time.Now()
	f.salesOrders[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) InsertSalesOrderLine(_ context.Context, line *SalesOrderLine) (int64, error) {
	o, ok := f.salesOrders[line.SalesOrderID]
	if !ok {
		return 0, ErrNotFound
	}
	cp := *line
	cp.ID = f.id()
	o.Lines = append(o.Lines, cp)
	return cp.ID, nil
}

func (f *fakeRepo) InsertPurchaseOrder(_ context.Context, order *PurchaseOrder) (int64, error) {
	cp := *order
	cp.ID = f.id()
	cp.CreatedAt = time.Now()
	f.purchaseOrders[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) InsertPurchaseOrderLine(_ context.Context, line *PurchaseOrderLine) (int64, error) {
	o, ok := f.purchaseOrders[line.PurchaseOrderID]
	if !ok {
		return 0, ErrNotFound
	}
	cp := *line
	cp.ID = f.id()
	o.Lines = append(o.Lines, cp)
	return cp.ID, nil
}

func (f *fakeRepo) SetSalesOrderStatus(_ context.Context, id int64, status SalesOrderStatus) error {
	o, ok := f.salesOrders[id]
	if !ok {
		return fmt.Errorf("sales order %d: %w", id, ErrNotFound)
	}
	o.Status = status
	return nil
}

func (f *fakeRepo) SetPurchaseOrderStatus(_ context.Context, id int64, status PurchaseOrderStatus) error {
	o, ok := f.purchaseOrders[id]
	if !ok {
		return fmt.Errorf("purchase order %d: %w", id, ErrNotFound)
	}
	o.Status = status
	return nil
}

func (f *fakeRepo) UpdateSalesOrderLineInvoiced(_ context.Context, lineID int64, invoicedQty decimal.Decimal, fully bool) error {
	for _, o := range f.salesOrders {
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				o.Lines[i].InvoicedQuantity = invoicedQty
				o.Lines[i].FullyInvoiced = fully
				return nil
			}
		}
	}
	return fmt.Errorf("sales order line %d: %w", lineID, ErrNotFound)
}

func (f *fakeRepo) GenerateSalesOrderNumber(_ context.Context, companyID int64, date time.Time) (string, error) {
	count := 0
	for _, o := range f.salesOrders {
		if o.CompanyID == companyID {
			count++
		}
	}
	return fmt.Sprintf("SO-%s-%04d", date.Format("0601"), count+1), nil
}

func (f *fakeRepo) GeneratePurchaseOrderNumber(_ context.Context, companyID int64, date time.Time) (string, error) {
	count := 0
	for _, o := range f.purchaseOrders {
		if o.CompanyID == companyID {
			count++
		}
	}
	return fmt.Sprintf("PO-%s-%04d", date.Format("0601"), count+1), nil
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return fn(ctx, f)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateSalesOrderComputesTotals(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	svc.WithNow(func() time.Time { return time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC) })

	order, err := svc.CreateSalesOrder(context.Background(), CreateSalesOrderRequest{
		CompanyID:  1,
		CustomerID: 10,
		Lines: []CreateLineRequest{
			{ProductID: 100, Quantity: dec("3"), UnitPrice: dec("19.99")},
			{ProductID: 200, Quantity: dec("1.5"), UnitPrice: dec("10")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "SO-2606-0001", order.DocNumber)
	require.Equal(t, SalesOrderStatusDraft, order.Status)
	require.True(t, order.Total.Equal(dec("74.97")))
	require.Len(t, order.Lines, 2)
	require.True(t, order.Lines[0].Amount.Equal(dec("59.97")))
	require.True(t, order.Lines[1].Amount.Equal(dec("15.00")))
	require.True(t, order.Lines[0].InvoicedQuantity.IsZero())
}

func TestCreateSalesOrderRejectsEmptyLines(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.CreateSalesOrder(context.Background(), CreateSalesOrderRequest{
		CompanyID:  1,
		CustomerID: 10,
	})
	require.ErrorIs(t, err, ErrNoLines)
}

func TestCreateSalesOrderRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.CreateSalesOrder(context.Background(), CreateSalesOrderRequest{
		CompanyID:  1,
		CustomerID: 10,
		Lines: []CreateLineRequest{
			{ProductID: 100, Quantity: dec("0"), UnitPrice: dec("5")},
		},
	})
	require.Error(t, err)
}

func TestCreatePurchaseOrderNumbersPerCompany(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	svc.WithNow(func() time.Time { return time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC) })

	first, err := svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderRequest{
		CompanyID:  2,
		SupplierID: 20,
		Lines:      []CreateLineRequest{{ProductID: 100, Quantity: dec("2"), UnitPrice: dec("4.50")}},
	})
	require.NoError(t, err)
	require.Equal(t, "PO-2606-0001", first.DocNumber)

	second, err := svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderRequest{
		CompanyID:  2,
		SupplierID: 20,
		Lines:      []CreateLineRequest{{ProductID: 100, Quantity: dec("1"), UnitPrice: dec("4.50")}},
	})
	require.NoError(t, err)
	require.Equal(t, "PO-2606-0002", second.DocNumber)
}

func TestTransitionSalesOrderAllowList(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	order, err := svc.CreateSalesOrder(context.Background(), CreateSalesOrderRequest{
		CompanyID:  1,
		CustomerID: 10,
		Lines:      []CreateLineRequest{{ProductID: 100, Quantity: dec("1"), UnitPrice: dec("10")}},
	})
	require.NoError(t, err)

	confirmed, err := svc.TransitionSalesOrder(context.Background(), order.ID, SalesOrderStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, SalesOrderStatusConfirmed, confirmed.Status)

	// DRAFT is not reachable from CONFIRMED.
	_, err = svc.TransitionSalesOrder(context.Background(), order.ID, SalesOrderStatusDraft)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionFromTerminalStatusFails(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	order, err := svc.CreateSalesOrder(context.Background(), CreateSalesOrderRequest{
		CompanyID:  1,
		CustomerID: 10,
		Lines:      []CreateLineRequest{{ProductID: 100, Quantity: dec("1"), UnitPrice: dec("10")}},
	})
	require.NoError(t, err)

	_, err = svc.TransitionSalesOrder(context.Background(), order.ID, SalesOrderStatusCancelled)
	require.NoError(t, err)

	_, err = svc.TransitionSalesOrder(context.Background(), order.ID, SalesOrderStatusConfirmed)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionUnknownOrder(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.TransitionSalesOrder(context.Background(), 999, SalesOrderStatusConfirmed)
	require.ErrorIs(t, err, ErrNotFound)
}
