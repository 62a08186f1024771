package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(3, 25, 20)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 50, p.Offset)
	assert.Equal(t, 3, p.Page)

	// Missing or bad parameters fall back to page 1 and the default
	// size.
	p = NewPagination(0, 0, 20)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset)
	assert.Equal(t, 1, p.Page)

	p = NewPagination(-2, -5, 20)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestNewPagedResult(t *testing.T) {
	items := []string{"a", "b", "c"}

	r := NewPagedResult(items, 45, NewPagination(2, 20, 20))
	assert.Equal(t, 45, r.TotalItems)
	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, 2, r.CurrentPage)
	assert.Equal(t, 20, r.PageSize)

	// Exact multiple does not add a trailing page.
	r = NewPagedResult(items, 40, NewPagination(1, 20, 20))
	assert.Equal(t, 2, r.TotalPages)
}
