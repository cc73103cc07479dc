package query

// Pagination bounds. Clamping request input to these is the HTTP
// boundary's job; NewPage trusts its inputs.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Page is the pagination metadata for one result page.
type Page struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPage derives page metadata from a 1-indexed page number, a page size
// and the total matching row count. TotalPages is never zero: an empty
// result set still has one (empty) page.
func NewPage(page, pageSize, total int) Page {
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return Page{
		Page:        page,
		PageSize:    pageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// Offset returns the select offset for this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}
