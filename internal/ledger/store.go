package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/platform/db"
)

// Store exposes the data operations the posting primitive needs. It runs
// against a pool or, via NewStore(tx), inside an enclosing transaction so
// other modules can post journals atomically with their own writes.
type Store interface {
	GetAccount(ctx context.Context, companyID, accountID int64) (*Account, error)
	GetAccountByCode(ctx context.Context, companyID int64, code string) (*Account, error)
	ResolveRoleCode(ctx context.Context, companyID int64, role AccountRole) (string, error)
	NextEntrySeq(ctx context.Context, companyID int64) (int64, error)
	InsertEntry(ctx context.Context, entry *JournalEntry) (int64, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error
	AddToBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error
	GetEntryWithLines(ctx context.Context, entryID int64) (*JournalEntry, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) ([]JournalEntry, error)
}

// Repository is a Store that can also open transactions.
type Repository interface {
	Store
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
}

type store struct {
	db db.DBTX
}

// NewStore builds a Store over a pool or transaction.
func NewStore(dbtx db.DBTX) Store {
	return &store{db: dbtx}
}

type repository struct {
	store
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{store: store{db: pool}, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}

const accountColumns = `id, company_id, code, name, type, parent_id, balance, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *store) GetAccount(ctx context.Context, companyID, accountID int64) (*Account, error) {
	acc, err := scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id=$1 AND company_id=$2`, accountID, companyID))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("account %d in company %d: %w", accountID, companyID, ErrAccountNotFound)
		}
		return nil, err
	}
	return acc, nil
}

func (s *store) GetAccountByCode(ctx context.Context, companyID int64, code string) (*Account, error) {
	acc, err := scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND code=$2`, companyID, code))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("account code %s in company %d: %w", code, companyID, ErrAccountNotFound)
		}
		return nil, err
	}
	return acc, nil
}

// ResolveRoleCode returns the company's configured code for a role, or the
// conventional default when no mapping exists.
func (s *store) ResolveRoleCode(ctx context.Context, companyID int64, role AccountRole) (string, error) {
	var code string
	err := s.db.QueryRow(ctx,
		`SELECT account_code FROM account_roles WHERE company_id=$1 AND role=$2`, companyID, role).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return role.DefaultCode(), nil
		}
		return "", err
	}
	return code, nil
}

// NextEntrySeq issues the next company-scoped sequence number. The unique
// constraint on (company_id, seq) converts concurrent races into retryable
// constraint violations rather than silent duplicates.
func (s *store) NextEntrySeq(ctx context.Context, companyID int64) (int64, error) {
	var next int64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM journal_entries WHERE company_id=$1`, companyID).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *store) InsertEntry(ctx context.Context, entry *JournalEntry) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO journal_entries (company_id, seq, number, description, entry_date, source_type, source_id, is_posted, posted_at, posted_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9) RETURNING id`,
		entry.CompanyID, entry.Seq, entry.Number, entry.Description, entry.EntryDate,
		nullString(entry.SourceType), entry.SourceID, entry.PostedAt, nullInt(entry.PostedBy)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *store) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := s.db.Exec(ctx,
			`INSERT INTO journal_lines (entry_id, account_id, debit, credit) VALUES ($1, $2, $3, $4)`,
			entryID, line.AccountID, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

// AddToBalance serialises through the row lock taken by UPDATE, so two
// concurrent postings against one account never lose an increment.
func (s *store) AddToBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	cmd, err := s.db.Exec(ctx,
		`UPDATE accounts SET balance = balance + $2, updated_at = NOW() WHERE id=$1`, accountID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *store) GetEntryWithLines(ctx context.Context, entryID int64) (*JournalEntry, error) {
	var e JournalEntry
	err := s.db.QueryRow(ctx,
		`SELECT id, company_id, number, description, entry_date, COALESCE(source_type, ''), source_id, is_posted, posted_at, COALESCE(posted_by, 0), created_at
FROM journal_entries WHERE id=$1`, entryID).
		Scan(&e.ID, &e.CompanyID, &e.Number, &e.Description, &e.EntryDate, &e.SourceType, &e.SourceID, &e.IsPosted, &e.PostedAt, &e.PostedBy, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, entry_id, account_id, debit, credit FROM journal_lines WHERE entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		e.Lines = append(e.Lines, line)
	}
	return &e, rows.Err()
}

func (s *store) ListEntries(ctx context.Context, req ListEntriesRequest) ([]JournalEntry, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, company_id, number, description, entry_date, COALESCE(source_type, ''), source_id, is_posted, posted_at, COALESCE(posted_by, 0), created_at
FROM journal_entries WHERE company_id=$1 ORDER BY seq DESC LIMIT $2 OFFSET $3`,
		req.CompanyID, limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Number, &e.Description, &e.EntryDate, &e.SourceType, &e.SourceID, &e.IsPosted, &e.PostedAt, &e.PostedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntryNumber formats the human-readable, company-scoped entry number.
func EntryNumber(seq int64) string {
	return fmt.Sprintf("JE%06d", seq)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
