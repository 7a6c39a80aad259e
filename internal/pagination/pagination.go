// Package pagination tracks the current page of a paged listing.
package pagination

// Paginator holds a zero-based current page and the total page count.
// It is not safe for concurrent use.
type Paginator struct {
	current int
	total   int
}

// New returns a paginator positioned at initial (negative values become 0).
func New(initial int) *Paginator {
	return &Paginator{current: max(initial, 0)}
}

// CurrentPage returns the zero-based current page
func (p *Paginator) CurrentPage() int { return p.current }

// TotalPages returns the last value given to SetTotalPages
func (p *Paginator) TotalPages() int { return p.total }

// SetTotalPages overwrites the page count. The current page is left alone.
func (p *Paginator) SetTotalPages(n int) {
	p.total = max(n, 0)
}

// GoToPage jumps to page n without bounds checking against the total.
func (p *Paginator) GoToPage(n int) {
	p.current = max(n, 0)
}

// NextPage advances one page, stopping at the last page.
func (p *Paginator) NextPage() {
	p.current = max(min(p.current+1, p.total-1), 0)
}

// PreviousPage steps back one page, stopping at 0.
func (p *Paginator) PreviousPage() {
	p.current = max(p.current-1, 0)
}

// ResetPage returns to the first page.
func (p *Paginator) ResetPage() {
	p.current = 0
}

func (p *Paginator) CanGoNext() bool     { return p.current < p.total-1 }
func (p *Paginator) CanGoPrevious() bool { return p.current > 0 }
