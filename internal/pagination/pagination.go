package pagination

import (
	"fmt"
	"math"
	"strconv"

	"gorm.io/gorm"

	apperrors "invoicer/internal/errors"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest holds pagination parameters parsed from query strings.
type PageRequest struct {
	Page     int
	PageSize int
}

// FromQuery builds a PageRequest from raw query values. Missing, malformed or
// non-positive values fall back to page 1 and the default page size.
func FromQuery(page, pageSize string) PageRequest {
	req := PageRequest{Page: atoi(page), PageSize: atoi(pageSize)}
	req.Defaults()
	return req
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Defaults coerces page and page size into range.
func (p *PageRequest) Defaults() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset returns the SQL OFFSET for the current page.
func (p *PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages is the number of pages needed for total items.
func (p *PageRequest) TotalPages(total int64) int {
	return int(math.Ceil(float64(total) / float64(p.PageSize)))
}

// Check rejects a page past the end of a non-empty result set.
func (p *PageRequest) Check(total int64) error {
	pages := p.TotalPages(total)
	if pages > 0 && p.Page > pages {
		return apperrors.WithMessage(apperrors.ErrPageOutOfRange,
			fmt.Sprintf("Page %d does not exist. Valid pages: 1 to %d", p.Page, pages))
	}
	return nil
}

// PageResponse wraps a paginated list of items with metadata.
type PageResponse[T any] struct {
	Items       []T   `json:"items"`
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
}

// NewPageResponse creates a PageResponse from the given data and total count.
func NewPageResponse[T any](data []T, req PageRequest, total int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	return PageResponse[T]{
		Items:       data,
		TotalCount:  total,
		TotalPages:  req.TotalPages(total),
		CurrentPage: req.Page,
		PageSize:    req.PageSize,
	}
}

// Map converts the items of a page, keeping its metadata.
func Map[T, U any](p PageResponse[T], fn func(T) U) PageResponse[U] {
	out := make([]U, len(p.Items))
	for i, item := range p.Items {
		out[i] = fn(item)
	}
	return PageResponse[U]{
		Items:       out,
		TotalCount:  p.TotalCount,
		TotalPages:  p.TotalPages,
		CurrentPage: p.CurrentPage,
		PageSize:    p.PageSize,
	}
}

// Paginate returns a GORM scope that applies OFFSET and LIMIT for the given page request.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PageSize)
	}
}
