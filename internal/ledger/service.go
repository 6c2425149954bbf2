package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crossbooks/crossbooks/internal/shared"
	"github.com/shopspring/decimal"
)

// AuditPort records posting events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posted entries by source type. Nil disables counting.
type MetricsPort interface {
	JournalPosted(sourceType string)
}

// Service handles journal entry business logic.
type Service struct {
	repo    Repository
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithMetrics attaches the posted-entries counter.
func (s *Service) WithMetrics(m MetricsPort) *Service {
	s.metrics = m
	return s
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post validates and persists a balanced journal entry in one transaction.
func (s *Service) Post(ctx context.Context, input PostingInput) (*JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var entry *JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Store) error {
		posted, err := PostEntry(ctx, tx, input, s.now())
		if err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.countPosted(input.SourceType)
	s.recordAudit(ctx, input.ActorID, "journal.post", entry)
	return entry, nil
}

// Reverse posts a new entry with debits and credits swapped. The original
// entry is immutable; this is the only correction path.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (*JournalEntry, error) {
	if input.EntryID == 0 {
		return nil, errors.New("ledger: entry id required")
	}
	var reversal *JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Store) error {
		original, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		lines := make([]PostingLineInput, 0, len(original.Lines))
		for _, line := range original.Lines {
			lines = append(lines, PostingLineInput{
				AccountID: line.AccountID,
				Debit:     line.Credit,
				Credit:    line.Debit,
			})
		}
		entryDate := original.EntryDate
		if input.EntryDate != nil {
			entryDate = *input.EntryDate
		}
		description := input.Description
		if description == "" {
			description = fmt.Sprintf("Reversal of %s", original.Number)
		}
		posting := PostingInput{
			CompanyID:   original.CompanyID,
			Description: description,
			EntryDate:   entryDate,
			SourceType:  "reversal",
			SourceID:    &original.ID,
			ActorID:     input.ActorID,
			Lines:       lines,
		}
		if err := posting.Validate(); err != nil {
			return err
		}
		posted, err := PostEntry(ctx, tx, posting, s.now())
		if err != nil {
			return err
		}
		reversal = posted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.countPosted("reversal")
	s.recordAudit(ctx, input.ActorID, "journal.reverse", reversal)
	return reversal, nil
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, entryID int64) (*JournalEntry, error) {
	return s.repo.GetEntryWithLines(ctx, entryID)
}

// List returns entries for a company, newest first.
func (s *Service) List(ctx context.Context, req ListEntriesRequest) ([]JournalEntry, error) {
	return s.repo.ListEntries(ctx, req)
}

func (s *Service) countPosted(sourceType string) {
	if s.metrics != nil {
		s.metrics.JournalPosted(sourceType)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entry *JournalEntry) {
	if s.audit == nil || entry == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta: map[string]any{
			"number":     entry.Number,
			"company_id": entry.CompanyID,
		},
		At: s.now(),
	})
}

// PostEntry is the posting primitive. It runs against any Store, so callers
// holding their own transaction post journals atomically with their writes.
// Every line's account must belong to the entry's company, and the running
// balance moves by +debit-credit on debit-normal accounts, +credit-debit
// otherwise.
func PostEntry(ctx context.Context, tx Store, input PostingInput, now time.Time) (*JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	seq, err := tx.NextEntrySeq(ctx, input.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("ledger: next entry seq: %w", err)
	}
	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}
	entry := &JournalEntry{
		CompanyID:   input.CompanyID,
		Seq:         seq,
		Number:      EntryNumber(seq),
		Description: input.Description,
		EntryDate:   entryDate,
		SourceType:  input.SourceType,
		SourceID:    input.SourceID,
		IsPosted:    true,
		PostedAt:    now,
		PostedBy:    input.ActorID,
		CreatedAt:   now,
	}

	lines := make([]JournalLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		account, err := tx.GetAccount(ctx, input.CompanyID, in.AccountID)
		if err != nil {
			return nil, err
		}
		var delta decimal.Decimal
		if account.Type.NormalBalance() == NormalDebit {
			delta = in.Debit.Sub(in.Credit)
		} else {
			delta = in.Credit.Sub(in.Debit)
		}
		if err := tx.AddToBalance(ctx, account.ID, delta); err != nil {
			return nil, err
		}
		lines = append(lines, JournalLine{AccountID: in.AccountID, Debit: in.Debit.Round(2), Credit: in.Credit.Round(2)})
	}

	id, err := tx.InsertEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("ledger: insert entry: %w", err)
	}
	entry.ID = id
	if err := tx.InsertLines(ctx, id, lines); err != nil {
		return nil, fmt.Errorf("ledger: insert lines: %w", err)
	}
	for i := range lines {
		lines[i].EntryID = id
	}
	entry.Lines = lines
	return entry, nil
}

// ResolveRoleAccount finds the account playing a role in a company's chart,
// by configured mapping or conventional code. Absence is a user-actionable
// MissingAccountError, not a generic failure.
func ResolveRoleAccount(ctx context.Context, tx Store, companyID int64, role AccountRole) (*Account, error) {
	code, err := tx.ResolveRoleCode(ctx, companyID, role)
	if err != nil {
		return nil, err
	}
	account, err := tx.GetAccountByCode(ctx, companyID, code)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, &MissingAccountError{CompanyID: companyID, Code: code, Role: role}
		}
		return nil, err
	}
	return account, nil
}
