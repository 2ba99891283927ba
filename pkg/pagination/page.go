// Package pagination provides the paged response envelope shared by the
// book and user listing endpoints.
package pagination

// Page is a single page of results plus the bookkeeping fields callers need
// to render pagers: zero-based page number, requested size, totals, and the
// first/last/empty flags.
type Page[T any] struct {
	Items            []T   `json:"items"`
	Page             int   `json:"page"`
	Size             int   `json:"size"`
	TotalPages       int   `json:"total_pages"`
	TotalElements    int64 `json:"total_elements"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	NumberOfElements int   `json:"number_of_elements"`
	Empty            bool  `json:"empty"`
}

// NewPage assembles a Page from a slice of items, the zero-based page number
// and size that produced it, and the total row count before paging.
func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}

	return Page[T]{
		Items:            items,
		Page:             page,
		Size:             size,
		TotalPages:       totalPages,
		TotalElements:    total,
		First:            page == 0,
		Last:             page >= totalPages-1,
		NumberOfElements: len(items),
		Empty:            len(items) == 0,
	}
}
