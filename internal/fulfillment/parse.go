// Package fulfillment tracks cumulative invoiced quantities per order line
// and enforces that partial documents never exceed what remains.
package fulfillment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrQuantityInvalid rejects input that does not parse to a finite number.
	ErrQuantityInvalid = errors.New("fulfillment: quantity is not a valid number")
	// ErrQuantityNotPositive rejects zero and negative quantities.
	ErrQuantityNotPositive = errors.New("fulfillment: quantity must be positive")
	// ErrAmountInvalid rejects money input that does not parse to a finite number.
	ErrAmountInvalid = errors.New("fulfillment: amount is not a valid number")
	// ErrAmountNegative rejects negative money amounts.
	ErrAmountNegative = errors.New("fulfillment: amount cannot be negative")
)

// ParseQuantity normalizes external quantity input into a decimal. Input may
// arrive as a JSON number, a plain string, or a comma-formatted string
// ("1,500"). A value that does not parse is an error; it is never replaced
// with a default.
func ParseQuantity(raw any) (decimal.Decimal, error) {
	d, err := parseNumber(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrQuantityInvalid, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrQuantityNotPositive, d)
	}
	return d, nil
}

// ParseMoney normalizes external price/amount input. Zero is allowed,
// negatives are not.
func ParseMoney(raw any) (decimal.Decimal, error) {
	d, err := parseNumber(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrAmountInvalid, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrAmountNegative, d)
	}
	return d, nil
}

func parseNumber(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, errors.New("nil value")
	case decimal.Decimal:
		return v, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		s := strings.TrimSpace(v)
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return decimal.Zero, errors.New("empty string")
		}
		return decimal.NewFromString(s)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, errors.New("not finite")
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return parseNumber(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", raw)
	}
}
