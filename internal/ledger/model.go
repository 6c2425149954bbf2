// Package ledger implements the double-entry posting primitive: balanced
// journal entries with running account balances, scoped per company.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalSide identifies which side increases an account.
type NormalSide string

const (
	NormalDebit  NormalSide = "DEBIT"
	NormalCredit NormalSide = "CREDIT"
)

// NormalBalance returns the side that increases accounts of this type.
func (t AccountType) NormalBalance() NormalSide {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// Account models a chart of accounts node. (companyID, code) is unique and
// Balance is mutated only by journal posting.
type Account struct {
	ID        int64           `json:"id"`
	CompanyID int64           `json:"company_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	ParentID  *int64          `json:"parent_id,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JournalEntry captures posting metadata. Entries are posted atomically at
// creation and immutable afterwards; corrections are reversing entries.
type JournalEntry struct {
	ID          int64         `json:"id"`
	CompanyID   int64         `json:"company_id"`
	Seq         int64         `json:"-"`
	Number      string        `json:"number"`
	Description string        `json:"description"`
	EntryDate   time.Time     `json:"entry_date"`
	SourceType  string        `json:"source_type,omitempty"`
	SourceID    *int64        `json:"source_id,omitempty"`
	IsPosted    bool          `json:"is_posted"`
	PostedAt    time.Time     `json:"posted_at"`
	PostedBy    int64         `json:"posted_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Lines       []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID        int64           `json:"id"`
	EntryID   int64           `json:"entry_id"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// AccountRole names the function an account plays in automated postings.
// The fixed codes are the convention; companies may remap roles in
// account_roles.
type AccountRole string

const (
	RoleIntercompanyReceivable AccountRole = "INTERCO_RECEIVABLE"
	RoleIntercompanyPayable    AccountRole = "INTERCO_PAYABLE"
	RoleRevenue                AccountRole = "REVENUE"
	RoleExpense                AccountRole = "EXPENSE"
	RoleCash                   AccountRole = "CASH"
	RoleAccountsReceivable     AccountRole = "ACCOUNTS_RECEIVABLE"
	RoleAccountsPayable        AccountRole = "ACCOUNTS_PAYABLE"
)

// DefaultCode returns the conventional chart code for a role.
func (r AccountRole) DefaultCode() string {
	switch r {
	case RoleIntercompanyReceivable:
		return "1150"
	case RoleIntercompanyPayable:
		return "2150"
	case RoleRevenue:
		return "4000"
	case RoleExpense:
		return "5000"
	case RoleCash:
		return "1000"
	case RoleAccountsReceivable:
		return "1100"
	case RoleAccountsPayable:
		return "2000"
	default:
		return ""
	}
}

// Purpose describes the role for operator-facing error messages.
func (r AccountRole) Purpose() string {
	switch r {
	case RoleIntercompanyReceivable:
		return "Intercompany Receivable"
	case RoleIntercompanyPayable:
		return "Intercompany Payable"
	case RoleRevenue:
		return "Revenue"
	case RoleExpense:
		return "Expense"
	case RoleCash:
		return "Cash"
	case RoleAccountsReceivable:
		return "Accounts Receivable"
	case RoleAccountsPayable:
		return "Accounts Payable"
	default:
		return string(r)
	}
}
