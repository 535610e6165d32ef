package util

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	offset = (page - 1) * size
	return offset, size
}

type Meta struct {
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

type Page[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// Paginate slices an already fetched list.
func Paginate[T any](all []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	offset, limit := Calculate(page, size)
	total := len(all)

	data := []T{}
	if offset < total {
		end := min(offset+limit, total)
		data = all[offset:end]
	}

	return Page[T]{
		Data: data,
		Meta: Meta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
			HasPrev:    page > 1,
			HasNext:    offset+limit < total,
		},
	}
}
