package types

import "math"

// PageRequest selects one page of an owner's resources.
// Query is a case-insensitive substring filter on name; empty means no filter.
type PageRequest struct {
	Query   string
	Page    int
	PerPage int
}

// Offset returns the row offset of the first item on the page. It saturates
// at math.MaxInt for pages past any representable offset.
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.PerPage < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PerPage
}

// Page is a slice of results plus the totals needed to describe neighbours.
type Page[T any] struct {
	Items   []T
	Total   int
	Page    int
	PerPage int
}

// Pages returns the number of pages needed for Total items.
func (p Page[T]) Pages() int {
	if p.PerPage < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

func (p Page[T]) HasNext() bool {
	return p.Page < p.Pages()
}
