package intercompany

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func candidates() []Transaction {
	return []Transaction{
		{ID: 1, ReferenceNumber: "IC-AAA", SourceOrderID: ptr(100), TargetOrderID: ptr(200), Amount: decimal.NewFromInt(50)},
		{ID: 2, ReferenceNumber: "IC-BBB", SourceOrderID: ptr(310), TargetOrderID: ptr(410), Amount: decimal.NewFromInt(75)},
		{ID: 3, ReferenceNumber: "IC-CCC", SourceOrderID: nil, TargetOrderID: ptr(1005), Amount: decimal.NewFromInt(20)},
	}
}

func TestFindMatchByReference(t *testing.T) {
	txn, strategy, ok := FindMatch(candidates(), MatchQuery{ReferenceNumber: "IC-BBB"})
	require.True(t, ok)
	require.Equal(t, int64(2), txn.ID)
	require.Equal(t, "reference", strategy)
}

func TestFindMatchByOrderID(t *testing.T) {
	txn, strategy, ok := FindMatch(candidates(), MatchQuery{OrderID: "200"})
	require.True(t, ok)
	require.Equal(t, int64(1), txn.ID)
	require.Equal(t, "order-id", strategy)

	// Either side of the pair matches.
	txn, _, ok = FindMatch(candidates(), MatchQuery{OrderID: "310"})
	require.True(t, ok)
	require.Equal(t, int64(2), txn.ID)
}

func TestFindMatchFuzzy(t *testing.T) {
	// "00" is not an exact id anywhere but is contained in 100.
	txn, strategy, ok := FindMatch(candidates(), MatchQuery{OrderID: "00"})
	require.True(t, ok)
	require.Equal(t, int64(1), txn.ID)
	require.Equal(t, "fuzzy-order-id", strategy)

	// Containment works the other direction too: the query may carry extra
	// prefix noise around a real id.
	txn, strategy, ok = FindMatch(candidates(), MatchQuery{OrderID: "ORD-1005-X"})
	require.True(t, ok)
	require.Equal(t, int64(3), txn.ID)
	require.Equal(t, "fuzzy-order-id", strategy)

	txn, strategy, ok = FindMatch(candidates(), MatchQuery{OrderID: "31055"})
	require.True(t, ok)
	require.Equal(t, int64(2), txn.ID)
	require.Equal(t, "fuzzy-order-id", strategy)
}

func TestFindMatchPrecedence(t *testing.T) {
	// Reference points at txn 3, order id at txn 1. Exact reference wins.
	txn, strategy, ok := FindMatch(candidates(), MatchQuery{ReferenceNumber: "IC-CCC", OrderID: "100"})
	require.True(t, ok)
	require.Equal(t, int64(3), txn.ID)
	require.Equal(t, "reference", strategy)

	// Exact order id beats fuzzy even when fuzzy would hit an earlier
	// candidate.
	txn, strategy, ok = FindMatch(candidates(), MatchQuery{OrderID: "1005"})
	require.True(t, ok)
	require.Equal(t, int64(3), txn.ID)
	require.Equal(t, "order-id", strategy)
}

func TestFindMatchDeterministic(t *testing.T) {
	list := candidates()
	q := MatchQuery{OrderID: "10"}
	first, strategy, ok := FindMatch(list, q)
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, s, ok := FindMatch(list, q)
		require.True(t, ok)
		require.Equal(t, first.ID, again.ID)
		require.Equal(t, strategy, s)
	}
}

func TestFindMatchMiss(t *testing.T) {
	_, _, ok := FindMatch(candidates(), MatchQuery{ReferenceNumber: "IC-ZZZ", OrderID: "abc"})
	require.False(t, ok)

	_, _, ok = FindMatch(nil, MatchQuery{ReferenceNumber: "IC-AAA"})
	require.False(t, ok)
}
