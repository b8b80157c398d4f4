package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupBalancedAndComplete(t *testing.T) {
	for n := 1; n <= 64; n++ {
		for gs := 1; gs <= n; gs++ {
			groups := Group(n, gs)
			require.Len(t, groups, (n+gs-1)/gs, "n=%d gs=%d", n, gs)

			seen := make(map[int]bool)
			smallest, largest := n, 0
			for _, g := range groups {
				smallest = min(smallest, len(g))
				largest = max(largest, len(g))
				assert.IsIncreasing(t, g, "n=%d gs=%d", n, gs)
				for _, s := range g {
					require.False(t, seen[s], "seed %d twice for n=%d gs=%d", s, n, gs)
					seen[s] = true
				}
			}
			assert.LessOrEqual(t, largest-smallest, 1, "n=%d gs=%d", n, gs)
			assert.Len(t, seen, n, "n=%d gs=%d", n, gs)
			for s := 1; s <= n; s++ {
				assert.True(t, seen[s], "seed %d missing for n=%d gs=%d", s, n, gs)
			}
		}
	}
}

func TestGroupSplitsTopSeeds(t *testing.T) {
	assert.Equal(t, [][]int{{1, 3, 6, 8}, {2, 4, 5, 7}}, Group(8, 4))
	assert.Equal(t, [][]int{{1, 4, 9}, {2, 5, 8}, {3, 6, 7}}, Group(9, 3))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, Group(5, 8))
}

func TestMinimalGroupSize(t *testing.T) {
	assert.Equal(t, 4, MinimalGroupSize(8, 4))
	// two groups of 5 leave 2 free slots, one per group: 4 and 4 fit exactly
	assert.Equal(t, 4, MinimalGroupSize(8, 5))
	assert.Equal(t, 5, MinimalGroupSize(9, 5))
	assert.Equal(t, 3, MinimalGroupSize(3, 10))
}

func TestGroupRejectsEmptyInput(t *testing.T) {
	assert.Nil(t, Group(0, 4))
	assert.Nil(t, Group(4, 0))
}
