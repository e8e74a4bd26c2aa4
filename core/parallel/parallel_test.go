package parallel

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunksCoverRange(t *testing.T) {
	for _, tc := range []struct{ items, workers int }{{10, 3}, {3, 8}, {1, 1}, {100, 7}} {
		t.Run(fmt.Sprintf("%d/%d", tc.items, tc.workers), func(t *testing.T) {
			chunks := Chunks(tc.items, tc.workers)
			assert.LessOrEqual(t, len(chunks), tc.workers)
			next := 0
			for _, c := range chunks {
				assert.Equal(t, next, c[0])
				assert.Greater(t, c[1], c[0])
				next = c[1]
			}
			assert.Equal(t, tc.items, next)
		})
	}
	assert.Nil(t, Chunks(0, 4))
}

func TestParallelizeVisitsEveryIndexOnce(t *testing.T) {
	const n = 1000
	hits := make([]int32, n)
	Parallelize(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i, h := range hits {
		require.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 5, end)
	})
	assert.Equal(t, 1, calls)

	ParallelizeWithThreshold(0, 10, func(start, end int) { t.Fatal("must not be called") })
}

func TestForEach(t *testing.T) {
	var sum int64
	err := ForEach(context.Background(), 50, 4, func(_ context.Context, i int) error {
		atomic.AddInt64(&sum, int64(i))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(49*50/2), sum)

	err = ForEach(context.Background(), 10, 2, func(_ context.Context, i int) error {
		if i == 3 {
			return fmt.Errorf("task %d failed", i)
		}
		return nil
	})
	assert.EqualError(t, err, "task 3 failed")
}
