package models

import (
	"net/url"
	"strconv"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultPage    = 1
	DefaultLimit   = 10
	DefaultSortBy  = "timestamp"
	DefaultSortDir = SortDesc
)

// IssuesQueryParams selects a page of issues. It is a value type: every
// transition returns a new value and the receiver is left untouched.
type IssuesQueryParams struct {
	Page    int
	Limit   int
	SortBy  string
	SortDir string
}

// DefaultIssuesQueryParams returns page 1, 10 rows, newest first.
func DefaultIssuesQueryParams() IssuesQueryParams {
	return IssuesQueryParams{
		Page:    DefaultPage,
		Limit:   DefaultLimit,
		SortBy:  DefaultSortBy,
		SortDir: DefaultSortDir,
	}
}

// SortedBy toggles the direction when col is already the sort column and
// otherwise starts ascending on col. The page always resets to 1.
func (p IssuesQueryParams) SortedBy(col string) IssuesQueryParams {
	next := p
	next.SortBy = col
	next.Page = 1
	switch {
	case p.SortBy == col && p.SortDir == SortAsc:
		next.SortDir = SortDesc
	case p.SortBy == col && p.SortDir == SortDesc:
		next.SortDir = SortAsc
	default:
		next.SortDir = SortAsc
	}
	return next
}

// WithPage returns a copy pointing at page n. Bounds are not checked.
func (p IssuesQueryParams) WithPage(n int) IssuesQueryParams {
	next := p
	next.Page = n
	return next
}

// Values encodes the params as the API's query string fields.
func (p IssuesQueryParams) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	v.Set("sort_by", p.SortBy)
	v.Set("sort_dir", p.SortDir)
	return v
}
