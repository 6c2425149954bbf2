package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

// PageRequest is a parsed page/per_page query pair.
type PageRequest struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// ParsePage reads page and per_page from query values, applying defaults
// and capping per_page at 200.
func ParsePage(q url.Values) PageRequest {
	p := PageRequest{Page: 1, PerPage: defaultPerPage}
	if raw := q.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Page = n
		}
	}
	if raw := q.Get("per_page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.PerPage = n
		}
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

// Limit returns the SQL limit for the page size.
func (p PageRequest) Limit() int { return p.PerPage }

// Offset returns the SQL offset for the current page.
func (p PageRequest) Offset() int { return (p.Page - 1) * p.PerPage }
