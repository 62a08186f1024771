package service

import (
	"testing"

	"marketplace-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func ptrInt64(v int64) *int64 { return &v }

// electronics(1) -> phones(2) -> android(3), with books(4) standalone
func testArena() categoryArena {
	return categoryArena{
		1: {ID: 1, Name: "electronics"},
		2: {ID: 2, Name: "phones", ParentID: ptrInt64(1)},
		3: {ID: 3, Name: "android", ParentID: ptrInt64(2)},
		4: {ID: 4, Name: "books"},
	}
}

func TestIsDescendant(t *testing.T) {
	arena := testArena()

	assert.True(t, arena.isDescendant(3, 1), "grandchild")
	assert.True(t, arena.isDescendant(2, 1), "child")
	assert.True(t, arena.isDescendant(2, 2), "a node is its own descendant")

	assert.False(t, arena.isDescendant(1, 3), "ancestor is not a descendant")
	assert.False(t, arena.isDescendant(4, 1), "unrelated subtree")
	assert.False(t, arena.isDescendant(99, 1), "unknown node")
}

func TestIsDescendantDanglingParent(t *testing.T) {
	// A parent pointer to a missing node terminates the walk instead of
	// looping.
	arena := categoryArena{
		5: &models.Category{ID: 5, ParentID: ptrInt64(77)},
	}
	assert.False(t, arena.isDescendant(5, 1))
}
