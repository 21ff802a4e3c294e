package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreeSlots(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{1, 3, 5}, FreeSlots(5, []int{4, 2}))
	assert.Empty(t, FreeSlots(2, []int{1, 2}))
	assert.Nil(t, FreeSlots(0, nil))
	assert.Equal(t, []int{2}, FreeSlots(2, []int{1, 1, 9}))
}
