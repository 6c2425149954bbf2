// Package company exposes the read side of company master data. Company
// management itself lives outside this service; the intercompany workflow
// only needs to resolve and validate company pairs.
package company

import "time"

// Kind enumerates the immutable company types.
type Kind string

const (
	KindManufacturer Kind = "MANUFACTURER"
	KindPlant        Kind = "PLANT"
	KindDistributor  Kind = "DISTRIBUTOR"
)

// Company is a bookkeeping entity owned by a tenant, with its own chart of
// accounts.
type Company struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenant_id"`
	Name         string    `json:"name"`
	Kind         Kind      `json:"kind"`
	BaseCurrency string    `json:"base_currency"`
	CreatedAt    time.Time `json:"created_at"`
}
