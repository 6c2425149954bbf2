package company

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crossbooks/crossbooks/internal/platform/db"
)

// ErrNotFound indicates the company does not exist.
var ErrNotFound = errors.New("company not found")

// ErrSameCompany rejects an intercompany pair where both sides are the same
// entity.
var ErrSameCompany = errors.New("source and target company must differ")

// Store reads company rows.
type Store interface {
	Get(ctx context.Context, id int64) (*Company, error)
	List(ctx context.Context, tenantID int64) ([]Company, error)
}

type store struct {
	db db.DBTX
}

// NewStore builds a Store over a pool or transaction.
func NewStore(dbtx db.DBTX) Store {
	return &store{db: dbtx}
}

func (s *store) Get(ctx context.Context, id int64) (*Company, error) {
	var c Company
	err := s.db.QueryRow(ctx, `SELECT id, tenant_id, name, kind, base_currency, created_at FROM companies WHERE id=$1`, id).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Kind, &c.BaseCurrency, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("company %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (s *store) List(ctx context.Context, tenantID int64) ([]Company, error) {
	rows, err := s.db.Query(ctx, `SELECT id, tenant_id, name, kind, base_currency, created_at FROM companies WHERE tenant_id=$1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Kind, &c.BaseCurrency, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ValidatePair confirms both companies exist and are distinct. Both sides of
// an intercompany transaction must share the same base currency; there is no
// FX conversion in the pairing.
func ValidatePair(ctx context.Context, s Store, sourceID, targetID int64) (*Company, *Company, error) {
	if sourceID == targetID {
		return nil, nil, ErrSameCompany
	}
	source, err := s.Get(ctx, sourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("verify source company: %w", err)
	}
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("verify target company: %w", err)
	}
	if source.BaseCurrency != target.BaseCurrency {
		return nil, nil, fmt.Errorf("company %d and %d use different base currencies", sourceID, targetID)
	}
	return source, target, nil
}
