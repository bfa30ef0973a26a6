package models

const (
	DefaultPageSize = 15
	MaxPageSize     = 100
)

type PaginatedResponse struct {
	Data     any `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// NormalizePage clamps paging input to a sane range.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	return page, size
}
