package shared

// Page is one window of an ordered result set. The metadata is derived
// from Total and PerPage only, so it is always self-consistent.
type Page[T any] struct {
	Items        []T   `json:"data"`
	Total        int64 `json:"total"`
	PerPage      int   `json:"per_page"`
	CurrentPage  int   `json:"current_page"`
	LastPage     int   `json:"last_page"`
	HasMorePages bool  `json:"has_more_pages"`
	NextPage     *int  `json:"next_page"`
	PreviousPage *int  `json:"previous_page"`
}

// Default pagination bounds
const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// NormalizePagination clamps page and perPage into their valid ranges
func NormalizePagination(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// Offset returns the row offset for a 1-based page
func Offset(page, perPage int) int {
	return (page - 1) * perPage
}

// NewPage creates a page and fills in the window metadata
func NewPage[T any](items []T, total int64, page, perPage int) Page[T] {
	page, perPage = NormalizePagination(page, perPage)
	if items == nil {
		items = []T{}
	}

	if total < 0 {
		total = 0
	}
	lastPage := 1
	if total > 0 {
		lastPage = int((total + int64(perPage) - 1) / int64(perPage))
	}

	p := Page[T]{
		Items:        items,
		Total:        total,
		PerPage:      perPage,
		CurrentPage:  page,
		LastPage:     lastPage,
		HasMorePages: page < lastPage,
	}
	if p.HasMorePages {
		next := page + 1
		p.NextPage = &next
	}
	// past the end, previous points back at the last real page
	if page > 1 {
		prev := min(page-1, lastPage)
		p.PreviousPage = &prev
	}
	return p
}
