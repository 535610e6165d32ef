package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size         int
		wantOffset, wantLn int
	}{
		{page: 1, size: 10, wantOffset: 0, wantLn: 10},
		{page: 3, size: 10, wantOffset: 20, wantLn: 10},
		{page: 0, size: 0, wantOffset: 0, wantLn: DefaultPageSize},
		{page: -2, size: 500, wantOffset: 0, wantLn: DefaultPageSize},
	}
	for _, tt := range tests {
		offset, limit := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.wantOffset, offset)
		assert.Equal(t, tt.wantLn, limit)
	}
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("abc", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	all := []int{1, 2, 3, 4, 5}

	p := Paginate(all, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Data)
	assert.Equal(t, Meta{Page: 2, Size: 2, Total: 5, TotalPages: 3, HasPrev: true, HasNext: true}, p.Meta)

	last := Paginate(all, 3, 2)
	assert.Equal(t, []int{5}, last.Data)
	assert.False(t, last.Meta.HasNext)

	beyond := Paginate(all, 9, 2)
	assert.Empty(t, beyond.Data)
	assert.NotNil(t, beyond.Data)

	empty := Paginate([]int{}, 1, 0)
	assert.Equal(t, Meta{Page: 1, Size: DefaultPageSize}, empty.Meta)
}
