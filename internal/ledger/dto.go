package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnbalancedEntry indicates debits do not equal credits.
	ErrUnbalancedEntry = errors.New("ledger: journal entry is not balanced")
	// ErrTooFewLines indicates fewer than two line items.
	ErrTooFewLines = errors.New("ledger: journal entry requires at least two lines")
	// ErrAccountNotFound indicates the account is missing from the company's
	// chart of accounts.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrMissingRequiredAccount indicates a role account is absent from the
	// company's chart of accounts.
	ErrMissingRequiredAccount = errors.New("ledger: required account missing")
	// ErrEntryNotFound indicates the journal entry does not exist.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
)

// MissingAccountError names the code, purpose and company so an operator can
// fix master data instead of staring at a generic failure.
type MissingAccountError struct {
	CompanyID int64
	Code      string
	Role      AccountRole
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("company %d has no account with code %s (%s); add it to the chart of accounts to enable intercompany postings",
		e.CompanyID, e.Code, e.Role.Purpose())
}

func (e *MissingAccountError) Unwrap() error { return ErrMissingRequiredAccount }

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	CompanyID   int64              `json:"company_id"`
	Description string             `json:"description"`
	EntryDate   time.Time          `json:"entry_date"`
	SourceType  string             `json:"source_type,omitempty"`
	SourceID    *int64             `json:"source_id,omitempty"`
	ActorID     int64              `json:"-"`
	Lines       []PostingLineInput `json:"lines"`
}

// Validate ensures posting input meets the balance invariant. Amounts are
// compared at currency precision, two decimal places, with exact equality.
func (in PostingInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("ledger: company required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Round(2).Equal(credit.Round(2)) {
		return fmt.Errorf("%w: debits %s, credits %s", ErrUnbalancedEntry, debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// ReverseInput wraps parameters for a reversing entry.
type ReverseInput struct {
	EntryID     int64
	ActorID     int64
	Description string
	EntryDate   *time.Time
}

// ListEntriesRequest filters journal entry listings.
type ListEntriesRequest struct {
	CompanyID int64
	Limit     int
	Offset    int
}
