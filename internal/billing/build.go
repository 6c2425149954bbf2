package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/fulfillment"
)

// InvoiceSpec carries the header fields for BuildInvoice.
type InvoiceSpec struct {
	CompanyID       int64
	CustomerID      int64
	SalesOrderID    int64
	ReferenceNumber *string
	InvoiceDate     time.Time
	DueDate         time.Time
	JournalEntryID  *int64
}

// BuildInvoice inserts an invoice with its items using the provided Store,
// so callers holding their own transaction (the intercompany workflow)
// create invoices atomically with their other writes. The invoice opens
// unpaid with balanceDue equal to its total.
func BuildInvoice(ctx context.Context, tx Store, spec InvoiceSpec, lines []fulfillment.ProcessedLine) (*Invoice, error) {
	docNumber, err := tx.GenerateInvoiceNumber(ctx, spec.CompanyID, spec.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	inv := &Invoice{
		CompanyID:       spec.CompanyID,
		CustomerID:      spec.CustomerID,
		SalesOrderID:    spec.SalesOrderID,
		DocNumber:       docNumber,
		ReferenceNumber: spec.ReferenceNumber,
		InvoiceDate:     spec.InvoiceDate,
		DueDate:         spec.DueDate,
		Status:          StatusOpen,
		Total:           total,
		AmountPaid:      decimal.Zero,
		BalanceDue:      total,
		JournalEntryID:  spec.JournalEntryID,
	}
	id, err := tx.InsertInvoice(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	inv.ID = id
	for _, line := range lines {
		soItemID := line.SOItemID
		desc := line.ProductName
		item := InvoiceItem{
			InvoiceID:    id,
			ProductID:    line.ProductID,
			Description:  &desc,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			Amount:       line.Amount,
			SOItemID:     &soItemID,
			PaidQuantity: decimal.Zero,
		}
		itemID, err := tx.InsertInvoiceItem(ctx, &item)
		if err != nil {
			return nil, fmt.Errorf("insert invoice item: %w", err)
		}
		item.ID = itemID
		inv.Items = append(inv.Items, item)
	}
	return inv, nil
}

// BillSpec carries the header fields for BuildBill.
type BillSpec struct {
	CompanyID       int64
	SupplierID      int64
	PurchaseOrderID int64
	ReferenceNumber *string
	BillDate        time.Time
	DueDate         time.Time
	JournalEntryID  *int64
}

// BuildBill is the purchase-side equivalent of BuildInvoice. Mirrored bill
// items carry no order line back-reference of their own; correlation runs
// through the shared reference number.
func BuildBill(ctx context.Context, tx Store, spec BillSpec, lines []fulfillment.ProcessedLine) (*Bill, error) {
	docNumber, err := tx.GenerateBillNumber(ctx, spec.CompanyID, spec.BillDate)
	if err != nil {
		return nil, fmt.Errorf("generate bill number: %w", err)
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	bill := &Bill{
		CompanyID:       spec.CompanyID,
		SupplierID:      spec.SupplierID,
		PurchaseOrderID: spec.PurchaseOrderID,
		DocNumber:       docNumber,
		ReferenceNumber: spec.ReferenceNumber,
		BillDate:        spec.BillDate,
		DueDate:         spec.DueDate,
		Status:          StatusOpen,
		Total:           total,
		AmountPaid:      decimal.Zero,
		BalanceDue:      total,
		JournalEntryID:  spec.JournalEntryID,
	}
	id, err := tx.InsertBill(ctx, bill)
	if err != nil {
		return nil, fmt.Errorf("insert bill: %w", err)
	}
	bill.ID = id
	for _, line := range lines {
		desc := line.ProductName
		item := BillItem{
			BillID:      id,
			ProductID:   line.ProductID,
			Description: &desc,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
		}
		itemID, err := tx.InsertBillItem(ctx, &item)
		if err != nil {
			return nil, fmt.Errorf("insert bill item: %w", err)
		}
		item.ID = itemID
		bill.Items = append(bill.Items, item)
	}
	return bill, nil
}
