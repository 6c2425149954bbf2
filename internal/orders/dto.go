package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("orders: record not found")
	// ErrInvalidTransition rejects a status move outside the allow-list.
	ErrInvalidTransition = errors.New("orders: invalid status transition")
	// ErrNoLines rejects an order without line items.
	ErrNoLines = errors.New("orders: at least one line item required")
)

// CreateLineRequest is one order line in a create request.
type CreateLineRequest struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	Description *string         `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateSalesOrderRequest creates a sales order with lines.
type CreateSalesOrderRequest struct {
	CompanyID       int64               `json:"company_id" validate:"required,gt=0"`
	CustomerID      int64               `json:"customer_id" validate:"required,gt=0"`
	OrderDate       time.Time           `json:"order_date"`
	ReferenceNumber *string             `json:"reference_number,omitempty"`
	Lines           []CreateLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// CreatePurchaseOrderRequest creates a purchase order with lines.
type CreatePurchaseOrderRequest struct {
	CompanyID       int64               `json:"company_id" validate:"required,gt=0"`
	SupplierID      int64               `json:"supplier_id" validate:"required,gt=0"`
	OrderDate       time.Time           `json:"order_date"`
	ReferenceNumber *string             `json:"reference_number,omitempty"`
	Lines           []CreateLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ListOrdersRequest filters order listings.
type ListOrdersRequest struct {
	CompanyID int64
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}

// lineAmounts computes per-line amounts and the order total at currency
// precision.
func lineAmounts(lines []CreateLineRequest) (decimal.Decimal, []decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, nil, ErrNoLines
	}
	total := decimal.Zero
	amounts := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		if !line.Quantity.IsPositive() {
			return decimal.Zero, nil, errors.New("orders: quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return decimal.Zero, nil, errors.New("orders: unit price cannot be negative")
		}
		amounts[i] = line.Quantity.Mul(line.UnitPrice).Round(2)
		total = total.Add(amounts[i])
	}
	return total, amounts, nil
}
