package intercompany

import (
	"strconv"
	"strings"
)

// MatchQuery carries the identifiers a caller has for the document it wants
// to correlate. OrderID stays a string because the operational history holds
// both numeric and legacy free-form order identifiers.
type MatchQuery struct {
	ReferenceNumber string
	OrderID         string
}

// MatchStrategy is one rung of the correlation cascade. Strategies run in
// declaration order and the first hit wins, so the most specific match
// always takes precedence over a looser one.
type MatchStrategy interface {
	Name() string
	Match(txn *Transaction, q MatchQuery) bool
}

// referenceStrategy matches on the shared reference number, the designed
// join key for a pair.
type referenceStrategy struct{}

func (referenceStrategy) Name() string { return "reference" }

func (referenceStrategy) Match(txn *Transaction, q MatchQuery) bool {
	return q.ReferenceNumber != "" && txn.ReferenceNumber == q.ReferenceNumber
}

// orderIDStrategy matches on exact numeric equality against either side's
// order id.
type orderIDStrategy struct{}

func (orderIDStrategy) Name() string { return "order-id" }

func (orderIDStrategy) Match(txn *Transaction, q MatchQuery) bool {
	id, err := strconv.ParseInt(strings.TrimSpace(q.OrderID), 10, 64)
	if err != nil {
		return false
	}
	if txn.SourceOrderID != nil && *txn.SourceOrderID == id {
		return true
	}
	return txn.TargetOrderID != nil && *txn.TargetOrderID == id
}

// fuzzyOrderIDStrategy handles legacy free-form identifiers: stringified
// equality, then substring containment in either direction.
type fuzzyOrderIDStrategy struct{}

func (fuzzyOrderIDStrategy) Name() string { return "fuzzy-order-id" }

func (fuzzyOrderIDStrategy) Match(txn *Transaction, q MatchQuery) bool {
	needle := strings.TrimSpace(q.OrderID)
	if needle == "" {
		return false
	}
	for _, side := range []*int64{txn.SourceOrderID, txn.TargetOrderID} {
		if side == nil {
			continue
		}
		s := strconv.FormatInt(*side, 10)
		if s == needle || strings.Contains(s, needle) || strings.Contains(needle, s) {
			return true
		}
	}
	return false
}

// DefaultStrategies is the production cascade, most specific first.
var DefaultStrategies = []MatchStrategy{
	referenceStrategy{},
	orderIDStrategy{},
	fuzzyOrderIDStrategy{},
}

// FindMatch runs the cascade over a candidate list. All candidates are
// checked against one strategy before the next, looser strategy is tried.
// It returns the matched transaction and the winning strategy's name. The
// cascade is deterministic: identical inputs against an unchanged list
// always return the same match.
func FindMatch(candidates []Transaction, q MatchQuery, strategies ...MatchStrategy) (*Transaction, string, bool) {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	for _, strategy := range strategies {
		for i := range candidates {
			if strategy.Match(&candidates[i], q) {
				return &candidates[i], strategy.Name(), true
			}
		}
	}
	return nil, "", false
}
