package models

const (
	DefaultPageSize = 50
	MinPageSize     = 10
	MaxPageSize     = 500
)

type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	TotalRecords    int  `json:"totalRecords"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// ClampPageSize applies the default for 0 and bounds everything else to [MinPageSize, MaxPageSize].
func ClampPageSize(size int) int {
	if size == 0 {
		return DefaultPageSize
	}
	return min(max(size, MinPageSize), MaxPageSize)
}

// Paginate slices records into the requested page. Pages start at 1.
func Paginate[T any](records []T, page int, pageSize int) ([]T, Pagination) {
	pageSize = ClampPageSize(pageSize)
	if page < 1 {
		page = 1
	}
	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize

	data := []T{}
	// compare page counts first; (page-1)*pageSize can overflow
	if page <= totalPages {
		start := (page - 1) * pageSize
		data = records[start:min(start+pageSize, total)]
	}
	return data, Pagination{
		CurrentPage:     page,
		PageSize:        pageSize,
		TotalRecords:    total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}
