package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/orders"
)

var (
	// ErrNoItemsSelected rejects an empty line selection. There is no
	// "select everything" fallback on the server side.
	ErrNoItemsSelected = errors.New("fulfillment: at least one line must be selected")
	// ErrQuantityExceedsRemaining is the sentinel wrapped by
	// QuantityExceedsRemainingError.
	ErrQuantityExceedsRemaining = errors.New("fulfillment: quantity exceeds remaining")
	// ErrLineNotFound indicates a selection referencing no order line.
	ErrLineNotFound = errors.New("fulfillment: order line not found for selection")
)

// QuantityExceedsRemainingError names the offending product so the caller can
// correct the request.
type QuantityExceedsRemainingError struct {
	ProductID   int64
	ProductName string
	Requested   decimal.Decimal
	Remaining   decimal.Decimal
}

func (e *QuantityExceedsRemainingError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("fulfillment: requested %s of %s but only %s remaining", e.Requested, name, e.Remaining)
}

func (e *QuantityExceedsRemainingError) Unwrap() error { return ErrQuantityExceedsRemaining }

// AppliedLine is a quantity already consumed by a prior partial document.
// SOItemID is the preferred back-reference; legacy rows carry only ProductID.
type AppliedLine struct {
	SOItemID  *int64
	ProductID int64
	Quantity  decimal.Decimal
}

// Remaining is the fulfillment state of one order line.
type Remaining struct {
	LineID       int64           `json:"line_id"`
	ProductID    int64           `json:"product_id"`
	OriginalQty  decimal.Decimal `json:"original_qty"`
	AppliedQty   decimal.Decimal `json:"applied_qty"`
	RemainingQty decimal.Decimal `json:"remaining_qty"`
	FullyApplied bool            `json:"fully_applied"`
}

// ComputeRemaining sums prior consumption per order line. Applied rows match
// by line back-reference first; rows without one fall back to product ID.
// Remaining never goes below zero.
func ComputeRemaining(lines []orders.SalesOrderLine, applied []AppliedLine) []Remaining {
	out := make([]Remaining, 0, len(lines))
	for _, line := range lines {
		appliedQty := decimal.Zero
		for _, a := range applied {
			switch {
			case a.SOItemID != nil:
				if *a.SOItemID == line.ID {
					appliedQty = appliedQty.Add(a.Quantity)
				}
			case a.ProductID == line.ProductID:
				appliedQty = appliedQty.Add(a.Quantity)
			}
		}
		remaining := line.Quantity.Sub(appliedQty)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		out = append(out, Remaining{
			LineID:       line.ID,
			ProductID:    line.ProductID,
			OriginalQty:  line.Quantity,
			AppliedQty:   appliedQty,
			RemainingQty: remaining,
			FullyApplied: !remaining.IsPositive(),
		})
	}
	return out
}

// Selection is one requested partial line. Quantity and UnitPrice are raw
// external values; they cross the parsing boundary inside
// ApplyPartialDocument.
type Selection struct {
	ProductID int64 `json:"product_id"`
	SOItemID  *int64 `json:"so_item_id,omitempty"`
	Quantity  any   `json:"quantity"`
	UnitPrice any   `json:"unit_price"`
}

// ProcessedLine is a validated, hydrated line ready for invoice or bill
// creation.
type ProcessedLine struct {
	SOItemID    int64           `json:"so_item_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// ProductNamer resolves display names for hydration. A nil namer leaves
// names as "product <id>".
type ProductNamer interface {
	ProductName(ctx context.Context, productID int64) (string, error)
}

// LineUpdater is the slice of the order store the engine writes through.
type LineUpdater interface {
	UpdateSalesOrderLineInvoiced(ctx context.Context, lineID int64, invoicedQty decimal.Decimal, fully bool) error
}

// ApplyPartialDocument validates the selection against remaining quantities,
// bumps each order line's invoiced quantity through tx, and returns the
// resolved lines. Callers run it inside the transaction that also writes the
// resulting document.
func ApplyPartialDocument(ctx context.Context, tx LineUpdater, order *orders.SalesOrder, selections []Selection, applied []AppliedLine, namer ProductNamer) ([]ProcessedLine, error) {
	if len(selections) == 0 {
		return nil, ErrNoItemsSelected
	}
	remaining := ComputeRemaining(order.Lines, applied)
	byLineID := make(map[int64]*Remaining, len(remaining))
	byProductID := make(map[int64]*Remaining, len(remaining))
	for i := range remaining {
		byLineID[remaining[i].LineID] = &remaining[i]
		byProductID[remaining[i].ProductID] = &remaining[i]
	}
	lineByID := make(map[int64]*orders.SalesOrderLine, len(order.Lines))
	for i := range order.Lines {
		lineByID[order.Lines[i].ID] = &order.Lines[i]
	}

	processed := make([]ProcessedLine, 0, len(selections))
	for _, sel := range selections {
		qty, err := ParseQuantity(sel.Quantity)
		if err != nil {
			return nil, err
		}
		price, err := ParseMoney(sel.UnitPrice)
		if err != nil {
			return nil, err
		}
		var rem *Remaining
		if sel.SOItemID != nil {
			rem = byLineID[*sel.SOItemID]
		}
		if rem == nil {
			rem = byProductID[sel.ProductID]
		}
		if rem == nil {
			return nil, fmt.Errorf("%w: product %d", ErrLineNotFound, sel.ProductID)
		}
		name := resolveName(ctx, namer, rem.ProductID)
		if qty.GreaterThan(rem.RemainingQty) {
			return nil, &QuantityExceedsRemainingError{
				ProductID:   rem.ProductID,
				ProductName: name,
				Requested:   qty,
				Remaining:   rem.RemainingQty,
			}
		}
		line := lineByID[rem.LineID]
		newInvoiced := line.InvoicedQuantity.Add(qty)
		fully := newInvoiced.GreaterThanOrEqual(line.Quantity)
		if err := tx.UpdateSalesOrderLineInvoiced(ctx, line.ID, newInvoiced, fully); err != nil {
			return nil, err
		}
		line.InvoicedQuantity = newInvoiced
		line.FullyInvoiced = fully
		// Reserve against repeated selections of the same line in one call.
		rem.AppliedQty = rem.AppliedQty.Add(qty)
		rem.RemainingQty = rem.RemainingQty.Sub(qty)
		rem.FullyApplied = !rem.RemainingQty.IsPositive()

		processed = append(processed, ProcessedLine{
			SOItemID:    line.ID,
			ProductID:   line.ProductID,
			ProductName: name,
			Quantity:    qty,
			UnitPrice:   price,
			Amount:      qty.Mul(price).Round(2),
		})
	}
	return processed, nil
}

func resolveName(ctx context.Context, namer ProductNamer, productID int64) string {
	if namer == nil {
		return fmt.Sprintf("product %d", productID)
	}
	name, err := namer.ProductName(ctx, productID)
	if err != nil || name == "" {
		return fmt.Sprintf("product %d", productID)
	}
	return name
}
