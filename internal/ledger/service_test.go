package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/testkit"
)

func newService(t *testing.T) (*ledger.Service, *testkit.MemLedger) {
	t.Helper()
	repo := testkit.NewMemLedger()
	repo.SeedStandardChart(1)
	svc := ledger.NewService(repo, nil)
	svc.WithNow(func() time.Time { return time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC) })
	return svc, repo
}

func account(t *testing.T, repo *testkit.MemLedger, code string) *ledger.Account {
	t.Helper()
	acc, err := repo.GetAccountByCode(context.Background(), 1, code)
	require.NoError(t, err)
	return acc
}

func TestPostBalancedEntry(t *testing.T) {
	svc, repo := newService(t)
	cash := account(t, repo, "1000")
	revenue := account(t, repo, "4000")

	entry, err := svc.Post(context.Background(), ledger.PostingInput{
		CompanyID:   1,
		Description: "Cash sale",
		Lines: []ledger.PostingLineInput{
			{AccountID: cash.ID, Debit: decimal.NewFromInt(120)},
			{AccountID: revenue.ID, Credit: decimal.NewFromInt(120)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "JE000001", entry.Number)
	require.True(t, entry.IsPosted)
	require.Len(t, entry.Lines, 2)

	// Running balances move with the entry.
	require.True(t, account(t, repo, "1000").Balance.Equal(decimal.NewFromInt(120)))
	require.True(t, account(t, repo, "4000").Balance.Equal(decimal.NewFromInt(120)))
}

func TestPostNumbersArePerCompany(t *testing.T) {
	svc, repo := newService(t)
	repo.SeedStandardChart(2)
	cash1 := account(t, repo, "1000")
	rev1 := account(t, repo, "4000")

	var cash2, rev2 *ledger.Account
	for _, acc := range repo.Accounts {
		if acc.CompanyID == 2 && acc.Code == "1000" {
			cash2 = acc
		}
		if acc.CompanyID == 2 && acc.Code == "4000" {
			rev2 = acc
		}
	}
	require.NotNil(t, cash2)
	require.NotNil(t, rev2)

	lines := func(debit, credit int64) []ledger.PostingLineInput {
		return []ledger.PostingLineInput{
			{AccountID: debit, Debit: decimal.NewFromInt(10)},
			{AccountID: credit, Credit: decimal.NewFromInt(10)},
		}
	}
	first, err := svc.Post(context.Background(), ledger.PostingInput{CompanyID: 1, Description: "a", Lines: lines(cash1.ID, rev1.ID)})
	require.NoError(t, err)
	second, err := svc.Post(context.Background(), ledger.PostingInput{CompanyID: 1, Description: "b", Lines: lines(cash1.ID, rev1.ID)})
	require.NoError(t, err)
	other, err := svc.Post(context.Background(), ledger.PostingInput{CompanyID: 2, Description: "c", Lines: lines(cash2.ID, rev2.ID)})
	require.NoError(t, err)

	require.Equal(t, "JE000001", first.Number)
	require.Equal(t, "JE000002", second.Number)
	require.Equal(t, "JE000001", other.Number, "sequences are company-scoped")
}

func TestPostRejectsUnbalancedEntry(t *testing.T) {
	svc, repo := newService(t)
	cash := account(t, repo, "1000")
	revenue := account(t, repo, "4000")

	_, err := svc.Post(context.Background(), ledger.PostingInput{
		CompanyID:   1,
		Description: "broken",
		Lines: []ledger.PostingLineInput{
			{AccountID: cash.ID, Debit: decimal.NewFromInt(120)},
			{AccountID: revenue.ID, Credit: decimal.NewFromInt(119)},
		},
	})
	require.ErrorIs(t, err, ledger.ErrUnbalancedEntry)
	require.Empty(t, repo.Entries, "nothing may persist")
}

func TestPostRejectsSingleLine(t *testing.T) {
	svc, repo := newService(t)
	cash := account(t, repo, "1000")

	_, err := svc.Post(context.Background(), ledger.PostingInput{
		CompanyID:   1,
		Description: "half an entry",
		Lines:       []ledger.PostingLineInput{{AccountID: cash.ID, Debit: decimal.Zero}},
	})
	require.ErrorIs(t, err, ledger.ErrTooFewLines)
}

func TestPostUnknownAccount(t *testing.T) {
	svc, repo := newService(t)
	cash := account(t, repo, "1000")

	_, err := svc.Post(context.Background(), ledger.PostingInput{
		CompanyID:   1,
		Description: "bad account",
		Lines: []ledger.PostingLineInput{
			{AccountID: cash.ID, Debit: decimal.NewFromInt(50)},
			{AccountID: 9999, Credit: decimal.NewFromInt(50)},
		},
	})
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestReverseSwapsDebitsAndCredits(t *testing.T) {
	svc, repo := newService(t)
	cash := account(t, repo, "1000")
	revenue := account(t, repo, "4000")

	original, err := svc.Post(context.Background(), ledger.PostingInput{
		CompanyID:   1,
		Description: "Cash sale",
		Lines: []ledger.PostingLineInput{
			{AccountID: cash.ID, Debit: decimal.NewFromInt(75)},
			{AccountID: revenue.ID, Credit: decimal.NewFromInt(75)},
		},
	})
	require.NoError(t, err)

	reversal, err := svc.Reverse(context.Background(), ledger.ReverseInput{EntryID: original.ID})
	require.NoError(t, err)
	require.Equal(t, "reversal", reversal.SourceType)
	require.Equal(t, original.ID, *reversal.SourceID)
	require.Equal(t, "Reversal of "+original.Number, reversal.Description)

	require.True(t, reversal.Lines[0].Credit.Equal(decimal.NewFromInt(75)))
	require.True(t, reversal.Lines[1].Debit.Equal(decimal.NewFromInt(75)))

	// Balances net to zero after the reversal.
	require.True(t, account(t, repo, "1000").Balance.IsZero())
	require.True(t, account(t, repo, "4000").Balance.IsZero())

	// The original entry stays untouched.
	got, err := svc.Get(context.Background(), original.ID)
	require.NoError(t, err)
	require.True(t, got.Lines[0].Debit.Equal(decimal.NewFromInt(75)))
}

func TestReverseUnknownEntry(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Reverse(context.Background(), ledger.ReverseInput{EntryID: 42})
	require.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestListNewestFirst(t *testing.T) {
	svc, repo := newService(t)
	cash := account(t, repo, "1000")
	revenue := account(t, repo, "4000")

	for i := 0; i < 3; i++ {
		_, err := svc.Post(context.Background(), ledger.PostingInput{
			CompanyID:   1,
			Description: "entry",
			Lines: []ledger.PostingLineInput{
				{AccountID: cash.ID, Debit: decimal.NewFromInt(10)},
				{AccountID: revenue.ID, Credit: decimal.NewFromInt(10)},
			},
		})
		require.NoError(t, err)
	}
	entries, err := svc.List(context.Background(), ledger.ListEntriesRequest{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "JE000003", entries[0].Number)
}

type recordingMetrics struct {
	sourceTypes []string
}

func (r *recordingMetrics) JournalPosted(sourceType string) {
	r.sourceTypes = append(r.sourceTypes, sourceType)
}

func TestPostAndReverseCountBySourceType(t *testing.T) {
	svc, repo := newService(t)
	rec := &recordingMetrics{}
	svc.WithMetrics(rec)
	cash := account(t, repo, "1000")
	revenue := account(t, repo, "4000")

	entry, err := svc.Post(context.Background(), ledger.PostingInput{
		CompanyID:   1,
		Description: "Cash sale",
		SourceType:  "invoice",
		Lines: []ledger.PostingLineInput{
			{AccountID: cash.ID, Debit: decimal.NewFromInt(80)},
			{AccountID: revenue.ID, Credit: decimal.NewFromInt(80)},
		},
	})
	require.NoError(t, err)

	_, err = svc.Reverse(context.Background(), ledger.ReverseInput{EntryID: entry.ID})
	require.NoError(t, err)

	require.Equal(t, []string{"invoice", "reversal"}, rec.sourceTypes)
}

func TestPostFailureDoesNotCount(t *testing.T) {
	svc, repo := newService(t)
	rec := &recordingMetrics{}
	svc.WithMetrics(rec)
	cash := account(t, repo, "1000")
	revenue := account(t, repo, "4000")

	_, err := svc.Post(context.Background(), ledger.PostingInput{
		CompanyID: 1,
		Lines: []ledger.PostingLineInput{
			{AccountID: cash.ID, Debit: decimal.NewFromInt(80)},
			{AccountID: revenue.ID, Credit: decimal.NewFromInt(79)},
		},
	})
	require.ErrorIs(t, err, ledger.ErrUnbalancedEntry)
	require.Empty(t, rec.sourceTypes)
}
