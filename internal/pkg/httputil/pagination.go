package httputil

import (
	"errors"
	"net/http"
	"strconv"
)

// Pagination defaults shared by list endpoints.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// ErrInvalidPagination is returned for non-numeric or non-positive page/limit values.
var ErrInvalidPagination = errors.New("page and limit must be positive integers")

// Page is a 1-based page request.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage reads the page and limit query parameters. Missing values fall back
// to page 1 and DefaultPageLimit; the limit is capped at MaxPageLimit.
func ParsePage(r *http.Request) (Page, error) {
	p := Page{Page: 1, Limit: DefaultPageLimit}

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Page{}, ErrInvalidPagination
		}
		p.Page = n
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Page{}, ErrInvalidPagination
		}
		p.Limit = min(n, MaxPageLimit)
	}

	return p, nil
}
