package aggregator

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapIndexed_PreservesOrder(t *testing.T) {
	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}

	results := mapIndexed(context.Background(), items, 16, func(ctx context.Context, index int, item int) int {
		// Jitter completion order so ordering bugs surface.
		time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		return item * 2
	})

	require.Len(t, results, 200)
	for i, r := range results {
		assert.Equal(t, i*2, r)
	}
}

func TestMapIndexed_EmptyInput(t *testing.T) {
	results := mapIndexed(context.Background(), nil, 4, func(ctx context.Context, index int, item int) int {
		return item
	})
	assert.Empty(t, results)
}

func TestMapIndexed_ConcurrencyAboveItemCount(t *testing.T) {
	results := mapIndexed(context.Background(), []string{"a", "b"}, 100, func(ctx context.Context, index int, item string) string {
		return item + item
	})
	assert.Equal(t, []string{"aa", "bb"}, results)
}

func TestMapIndexed_ZeroConcurrencyUsesDefault(t *testing.T) {
	results := mapIndexed(context.Background(), []int{1, 2, 3}, 0, func(ctx context.Context, index int, item int) int {
		return item + 10
	})
	assert.Equal(t, []int{11, 12, 13}, results)
}
