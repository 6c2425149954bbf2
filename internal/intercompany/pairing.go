package intercompany

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/ledger"
)

// PairedEntries holds the two balanced journal entries of one intercompany
// event, one per company.
type PairedEntries struct {
	Source *ledger.JournalEntry `json:"source"`
	Target *ledger.JournalEntry `json:"target"`
}

// PostInvoicePair posts the journal pair for an intercompany invoice inside
// the caller's transaction: the source company debits its intercompany
// receivable and credits revenue, the target debits expense and credits its
// intercompany payable, both for the same amount. A missing role account in
// either chart fails the whole pair with a MissingAccountError before any
// entry lands, and any later failure rolls back both sides together.
func PostInvoicePair(ctx context.Context, tx Stores, txn *Transaction, amount decimal.Decimal, now time.Time) (*PairedEntries, error) {
	receivable, err := ledger.ResolveRoleAccount(ctx, tx.Ledger, txn.SourceCompanyID, ledger.RoleIntercompanyReceivable)
	if err != nil {
		return nil, err
	}
	revenue, err := ledger.ResolveRoleAccount(ctx, tx.Ledger, txn.SourceCompanyID, ledger.RoleRevenue)
	if err != nil {
		return nil, err
	}
	payable, err := ledger.ResolveRoleAccount(ctx, tx.Ledger, txn.TargetCompanyID, ledger.RoleIntercompanyPayable)
	if err != nil {
		return nil, err
	}
	expense, err := ledger.ResolveRoleAccount(ctx, tx.Ledger, txn.TargetCompanyID, ledger.RoleExpense)
	if err != nil {
		return nil, err
	}

	source, err := ledger.PostEntry(ctx, tx.Ledger, ledger.PostingInput{
		CompanyID:   txn.SourceCompanyID,
		Description: fmt.Sprintf("Intercompany invoice %s", txn.ReferenceNumber),
		EntryDate:   now,
		SourceType:  "intercompany_invoice",
		SourceID:    &txn.ID,
		Lines: []ledger.PostingLineInput{
			{AccountID: receivable.ID, Debit: amount},
			{AccountID: revenue.ID, Credit: amount},
		},
	}, now)
	if err != nil {
		return nil, fmt.Errorf("post source entry: %w", err)
	}
	target, err := ledger.PostEntry(ctx, tx.Ledger, ledger.PostingInput{
		CompanyID:   txn.TargetCompanyID,
		Description: fmt.Sprintf("Intercompany bill %s", txn.ReferenceNumber),
		EntryDate:   now,
		SourceType:  "intercompany_bill",
		SourceID:    &txn.ID,
		Lines: []ledger.PostingLineInput{
			{AccountID: expense.ID, Debit: amount},
			{AccountID: payable.ID, Credit: amount},
		},
	}, now)
	if err != nil {
		return nil, fmt.Errorf("post target entry: %w", err)
	}

	if err := tx.IC.MarkCompleted(ctx, txn.ID, source.ID, target.ID); err != nil {
		return nil, err
	}
	txn.Status = StatusCompleted
	txn.SourceJournalEntryID = &source.ID
	txn.TargetJournalEntryID = &target.ID
	return &PairedEntries{Source: source, Target: target}, nil
}

// PaymentPair holds the money-movement entries plus the resolved accounts,
// so the caller can stamp them onto the receipt and payment rows.
type PaymentPair struct {
	Paying          *ledger.JournalEntry `json:"paying"`
	Receiving       *ledger.JournalEntry `json:"receiving"`
	PayingDebit     int64                `json:"-"`
	PayingCredit    int64                `json:"-"`
	ReceivingDebit  int64                `json:"-"`
	ReceivingCredit int64                `json:"-"`
}

// PostPaymentPair posts the money-movement pair: the target (paying) company
// debits accounts payable and credits cash, the source (receiving) company
// debits cash and credits accounts receivable.
func PostPaymentPair(ctx context.Context, tx Stores, txn *Transaction, amount decimal.Decimal, now time.Time) (*PaymentPair, error) {
	payingAP, err := ledger.ResolveRoleAccount(ctx, tx.Ledger, txn.TargetCompanyID, ledger.RoleAccountsPayable)
	if err != nil {
		return nil, err
	}
	payingCash, err := ledger.ResolveRoleAccount(ctx, tx.Ledger, txn.TargetCompanyID, ledger.RoleCash)
	if err != nil {
		return nil, err
	}
	receivingCash, err := ledger.ResolveRoleAccount(ctx, tx.Ledger, txn.SourceCompanyID, ledger.RoleCash)
	if err != nil {
		return nil, err
	}
	receivingAR, err := ledger.ResolveRoleAccount(ctx, tx.Ledger, txn.SourceCompanyID, ledger.RoleAccountsReceivable)
	if err != nil {
		return nil, err
	}

	paying, err := ledger.PostEntry(ctx, tx.Ledger, ledger.PostingInput{
		CompanyID:   txn.TargetCompanyID,
		Description: fmt.Sprintf("Intercompany payment %s", txn.ReferenceNumber),
		EntryDate:   now,
		SourceType:  "intercompany_payment",
		SourceID:    &txn.ID,
		Lines: []ledger.PostingLineInput{
			{AccountID: payingAP.ID, Debit: amount},
			{AccountID: payingCash.ID, Credit: amount},
		},
	}, now)
	if err != nil {
		return nil, fmt.Errorf("post paying entry: %w", err)
	}
	receiving, err := ledger.PostEntry(ctx, tx.Ledger, ledger.PostingInput{
		CompanyID:   txn.SourceCompanyID,
		Description: fmt.Sprintf("Intercompany receipt %s", txn.ReferenceNumber),
		EntryDate:   now,
		SourceType:  "intercompany_receipt",
		SourceID:    &txn.ID,
		Lines: []ledger.PostingLineInput{
			{AccountID: receivingCash.ID, Debit: amount},
			{AccountID: receivingAR.ID, Credit: amount},
		},
	}, now)
	if err != nil {
		return nil, fmt.Errorf("post receiving entry: %w", err)
	}
	return &PaymentPair{
		Paying:          paying,
		Receiving:       receiving,
		PayingDebit:     payingAP.ID,
		PayingCredit:    payingCash.ID,
		ReceivingDebit:  receivingCash.ID,
		ReceivingCredit: receivingAR.ID,
	}, nil
}
