package company_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crossbooks/crossbooks/internal/company"
	"github.com/crossbooks/crossbooks/internal/testkit"
)

func seeded() *testkit.MemCompany {
	store := testkit.NewMemCompany()
	store.Add(company.Company{ID: 1, TenantID: 1, Name: "Alpha", Kind: company.KindManufacturer, BaseCurrency: "USD"})
	store.Add(company.Company{ID: 2, TenantID: 1, Name: "Beta", Kind: company.KindDistributor, BaseCurrency: "USD"})
	store.Add(company.Company{ID: 3, TenantID: 2, Name: "Gamma", Kind: company.KindPlant, BaseCurrency: "EUR"})
	return store
}

func TestValidatePair(t *testing.T) {
	store := seeded()
	source, target, err := company.ValidatePair(context.Background(), store, 1, 2)
	require.NoError(t, err)
	require.Equal(t, "Alpha", source.Name)
	require.Equal(t, "Beta", target.Name)
}

func TestValidatePairSameCompany(t *testing.T) {
	store := seeded()
	_, _, err := company.ValidatePair(context.Background(), store, 1, 1)
	require.ErrorIs(t, err, company.ErrSameCompany)
}

func TestValidatePairUnknownCompany(t *testing.T) {
	store := seeded()
	_, _, err := company.ValidatePair(context.Background(), store, 1, 99)
	require.ErrorIs(t, err, company.ErrNotFound)

	_, _, err = company.ValidatePair(context.Background(), store, 98, 2)
	require.ErrorIs(t, err, company.ErrNotFound)
}

func TestValidatePairCurrencyMismatch(t *testing.T) {
	store := seeded()
	_, _, err := company.ValidatePair(context.Background(), store, 1, 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "different base currencies")
}
