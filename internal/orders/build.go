package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BuildSalesOrder inserts a sales order header and lines using the provided
// Store, so callers holding their own transaction (the intercompany
// workflow) create orders atomically with their other writes.
func BuildSalesOrder(ctx context.Context, tx Store, req CreateSalesOrderRequest, status SalesOrderStatus, total decimal.Decimal, amounts []decimal.Decimal, orderDate time.Time) (int64, error) {
	docNumber, err := tx.GenerateSalesOrderNumber(ctx, req.CompanyID, orderDate)
	if err != nil {
		return 0, fmt.Errorf("generate sales order number: %w", err)
	}
	orderID, err := tx.InsertSalesOrder(ctx, &SalesOrder{
		CompanyID:       req.CompanyID,
		CustomerID:      req.CustomerID,
		DocNumber:       docNumber,
		ReferenceNumber: req.ReferenceNumber,
		OrderDate:       orderDate,
		Status:          status,
		Total:           total,
	})
	if err != nil {
		return 0, fmt.Errorf("insert sales order: %w", err)
	}
	for i, line := range req.Lines {
		if _, err := tx.InsertSalesOrderLine(ctx, &SalesOrderLine{
			SalesOrderID:     orderID,
			ProductID:        line.ProductID,
			Description:      line.Description,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			Amount:           amounts[i],
			InvoicedQuantity: decimal.Zero,
		}); err != nil {
			return 0, fmt.Errorf("insert sales order line: %w", err)
		}
	}
	return orderID, nil
}

// BuildPurchaseOrder is the purchase-side equivalent of BuildSalesOrder.
func BuildPurchaseOrder(ctx context.Context, tx Store, req CreatePurchaseOrderRequest, status PurchaseOrderStatus, total decimal.Decimal, amounts []decimal.Decimal, orderDate time.Time) (int64, error) {
	docNumber, err := tx.GeneratePurchaseOrderNumber(ctx, req.CompanyID, orderDate)
	if err != nil {
		return 0, fmt.Errorf("generate purchase order number: %w", err)
	}
	orderID, err := tx.InsertPurchaseOrder(ctx, &PurchaseOrder{
		CompanyID:       req.CompanyID,
		SupplierID:      req.SupplierID,
		DocNumber:       docNumber,
		ReferenceNumber: req.ReferenceNumber,
		OrderDate:       orderDate,
		Status:          status,
		Total:           total,
	})
	if err != nil {
		return 0, fmt.Errorf("insert purchase order: %w", err)
	}
	for i, line := range req.Lines {
		if _, err := tx.InsertPurchaseOrderLine(ctx, &PurchaseOrderLine{
			PurchaseOrderID: orderID,
			ProductID:       line.ProductID,
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			Amount:          amounts[i],
		}); err != nil {
			return 0, fmt.Errorf("insert purchase order line: %w", err)
		}
	}
	return orderID, nil
}

// LineTotals recomputes the order total and per-line amounts; exported for
// callers that build orders inside their own transaction.
func LineTotals(lines []CreateLineRequest) (decimal.Decimal, []decimal.Decimal, error) {
	return lineAmounts(lines)
}
