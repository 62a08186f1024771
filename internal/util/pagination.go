package util

// Pagination holds the limit/offset derived from page and size query
// parameters
type Pagination struct {
	Limit  int
	Offset int
	Page   int
}

// PagedResult is the envelope returned by list endpoints
type PagedResult struct {
	TotalItems  int         `json:"total_items"`
	Items       interface{} `json:"items"`
	TotalPages  int         `json:"total_pages"`
	CurrentPage int         `json:"current_page"`
	PageSize    int         `json:"page_size"`
}

// NewPagination derives limit/offset from 1-based page and size,
// falling back to defaultSize when size is not positive
func NewPagination(page, size, defaultSize int) Pagination {
	if size <= 0 {
		size = defaultSize
	}
	if page <= 0 {
		page = 1
	}
	return Pagination{
		Limit:  size,
		Offset: (page - 1) * size,
		Page:   page,
	}
}

// NewPagedResult builds the paged envelope for a result set
func NewPagedResult(items interface{}, totalItems int, p Pagination) PagedResult {
	totalPages := totalItems / p.Limit
	if totalItems%p.Limit != 0 {
		totalPages++
	}
	return PagedResult{
		TotalItems:  totalItems,
		Items:       items,
		TotalPages:  totalPages,
		CurrentPage: p.Page,
		PageSize:    p.Limit,
	}
}
