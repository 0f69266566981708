package pagination

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is used when a handler does not pick its own default.
	DefaultLimit = 20
	// MaxLimit caps page sizes to keep queries bounded.
	MaxLimit = 100
	// MaxPage caps the requested page so the offset stays well inside int32.
	MaxPage = 100_000
)

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the number of items skipped before this page.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	page := min(p.Page, MaxPage)
	return (page - 1) * p.Limit
}

// Options control defaults for a single listing.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// FromRequest reads page and limit from the query string.
func FromRequest(r *http.Request, opts Options) Params {
	return Parse(r.URL.Query(), opts)
}

// Parse clamps page into [1, MaxPage] and limit into [1, max]. Values that are not
// integers fall back to the defaults rather than failing the request.
func Parse(values url.Values, opts Options) Params {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	page := intOr(values.Get("page"), 1)
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}

	limit := intOr(values.Get("limit"), defaultLimit)
	switch {
	case limit < 1:
		limit = 1
	case limit > maxLimit:
		limit = maxLimit
	}

	return Params{Page: page, Limit: limit}
}

func intOr(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
