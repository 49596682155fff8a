package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name     string
		items    []int
		size     int
		expected [][]int
	}{
		{
			name:     "even split",
			items:    []int{1, 2, 3, 4},
			size:     2,
			expected: [][]int{{1, 2}, {3, 4}},
		},
		{
			name:     "short last batch",
			items:    []int{1, 2, 3, 4, 5},
			size:     2,
			expected: [][]int{{1, 2}, {3, 4}, {5}},
		},
		{
			name:     "size larger than input",
			items:    []int{1, 2},
			size:     16,
			expected: [][]int{{1, 2}},
		},
		{
			name:     "size below one",
			items:    []int{1, 2},
			size:     0,
			expected: [][]int{{1}, {2}},
		},
		{
			name:     "empty input",
			items:    nil,
			size:     4,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Partition(tt.items, tt.size))
		})
	}
}

func TestPartition_BatchesDoNotOverlapOnAppend(t *testing.T) {
	items := []int{1, 2, 3, 4}
	batches := Partition(items, 2)

	batches[0] = append(batches[0], 99)
	assert.Equal(t, []int{1, 2, 3, 4}, items, "appending to a batch must not clobber the next one")
}
