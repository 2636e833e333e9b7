package chat

// Pagination describes one page of a list response.
type Pagination struct {
	Count      int64 // Count is the total number of matching records
	Page       int
	PageSize   int
	TotalPages int
}

// NewPagination creates a Pagination with the page count derived from count and pageSize.
func NewPagination(count int64, page, pageSize int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((count + int64(pageSize) - 1) / int64(pageSize))
	}

	return Pagination{
		Count:      count,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
