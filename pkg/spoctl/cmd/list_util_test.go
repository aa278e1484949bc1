package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, footer := paginate(items, 1, 0, false)
	assert.Equal(t, items, page)
	assert.Empty(t, footer)

	page, footer = paginate(items, 2, 2, false)
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, "Showing page 2 of 3 (5 apps)", footer)

	page, _ = paginate(items, 3, 2, false)
	assert.Equal(t, []int{5}, page)

	page, footer = paginate(items, 9, 2, false)
	assert.Empty(t, page)
	assert.Equal(t, "Showing page 9 of 3 (5 apps)", footer)

	page, footer = paginate(items, 2, 2, true)
	assert.Equal(t, items, page)
	assert.Empty(t, footer)

	page, _ = paginate(items, 0, 2, false)
	assert.Equal(t, []int{1, 2}, page)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, pageCount(0, 10))
	assert.Equal(t, 1, pageCount(10, 0))
	assert.Equal(t, 1, pageCount(10, 10))
	assert.Equal(t, 2, pageCount(11, 10))
}
