package domain

// default and maximum page sizes
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageQuery one based page request
type PageQuery struct {
	PageNo   int `json:"page_no" query:"page_no" validate:"omitempty,min=1"`
	PageSize int `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
}

// Normalize fill defaults for unset fields
func (pq PageQuery) Normalize() PageQuery {
	if pq.PageNo < 1 {
		pq.PageNo = 1
	}
	if pq.PageSize < 1 {
		pq.PageSize = DefaultPageSize
	}
	if pq.PageSize > MaxPageSize {
		pq.PageSize = MaxPageSize
	}
	return pq
}

// Offset rows to skip
func (pq PageQuery) Offset() int {
	return (pq.PageNo - 1) * pq.PageSize
}

// Page a slice of results with totals
type Page[T any] struct {
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
	List  []T   `json:"list"`
}

// NewPage build a page, pages is derived from total and size
func NewPage[T any](total int64, size int, list []T) *Page[T] {
	if list == nil {
		list = []T{}
	}
	var pages int64
	if size > 0 {
		pages = (total + int64(size) - 1) / int64(size)
	}
	return &Page[T]{Total: total, Pages: pages, List: list}
}
