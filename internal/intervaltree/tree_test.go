package intervaltree

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

func bruteForceOverlap(intervals []domain.Interval, q domain.Interval) int {
	sum := 0
	for _, iv := range intervals {
		sum += domain.Overlap(q, iv)
	}
	return sum
}

func randomIntervals(rng *rand.Rand, n, maxStart, maxLen int) []domain.Interval {
	intervals := make([]domain.Interval, n)
	for i := range intervals {
		start := rng.Intn(maxStart + 1)
		intervals[i] = domain.Interval{Start: start, End: start + rng.Intn(maxLen+1)}
	}
	return intervals
}

// checkInvariants 校验每个节点的 treeSize 与分桶规则
func checkInvariants(t *testing.T, n *node) int {
	t.Helper()
	if n == nil {
		return 0
	}

	for _, iv := range n.byStart {
		assert.True(t, iv.Start <= n.center && n.center <= iv.End, "centered interval %+v does not touch %d", iv, n.center)
	}
	assert.True(t, slices.IsSortedFunc(n.byStart, domain.CompareByStart))
	assert.True(t, slices.IsSortedFunc(n.byEnd, func(a, b domain.Interval) int { return b.End - a.End }))
	assert.Len(t, n.byStart, n.nodeSize)
	assert.Len(t, n.byEnd, n.nodeSize)

	if n.left != nil {
		for _, iv := range n.left.Intervals() {
			assert.Less(t, iv.End, n.center)
		}
	}
	if n.right != nil {
		for _, iv := range n.right.Intervals() {
			assert.Greater(t, iv.Start, n.center)
		}
	}

	size := n.nodeSize + checkInvariants(t, n.left) + checkInvariants(t, n.right)
	assert.Equal(t, size, n.treeSize)
	return size
}

// Intervals 让子树也能复用中序遍历
func (n *node) Intervals() []domain.Interval {
	return n.appendInOrder(nil)
}

func TestOverlapMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		hi := 50 + rng.Intn(500)
		intervals := randomIntervals(rng, rng.Intn(80), hi, 60)
		tree := New(0, hi, intervals)

		require.Equal(t, len(intervals), tree.Size())
		checkInvariants(t, tree.root)

		for q := 0; q < 100; q++ {
			start := rng.Intn(hi+40) - 20
			query := domain.Interval{Start: start, End: start + rng.Intn(80)}
			assert.Equal(t, bruteForceOverlap(intervals, query), tree.Overlap(query), "query %+v", query)
		}
	}
}

func TestOverlapQueryOnCenter(t *testing.T) {
	intervals := []domain.Interval{
		{Start: 0, End: 10},
		{Start: 40, End: 60},
		{Start: 45, End: 50},
		{Start: 50, End: 50},
		{Start: 51, End: 70},
		{Start: 90, End: 100},
	}
	tree := New(0, 100, intervals)
	require.Equal(t, 50, tree.root.center)

	for _, q := range []domain.Interval{
		{Start: 50, End: 55},
		{Start: 45, End: 50},
		{Start: 50, End: 50},
		{Start: 20, End: 50},
		{Start: 50, End: 95},
		{Start: 0, End: 100},
		{Start: 24, End: 26},
		{Start: 74, End: 76},
	} {
		assert.Equal(t, bruteForceOverlap(intervals, q), tree.Overlap(q), "query %+v", q)
	}
}

func TestIntervalsInOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	intervals := randomIntervals(rng, 64, 1000, 100)
	tree := New(0, 1000, intervals)

	got := tree.Intervals()
	require.Len(t, got, len(intervals))
	assert.ElementsMatch(t, intervals, got)
}

func TestEmptyTree(t *testing.T) {
	tree := New(0, 100, nil)

	assert.Zero(t, tree.Size())
	assert.Empty(t, tree.Intervals())
	assert.Zero(t, tree.Overlap(domain.Interval{Start: 0, End: 100}))
}

func TestFromReservedTimes(t *testing.T) {
	reserved := []domain.ReservedTime{
		{Title: "上课", StartOffset: 0, Duration: 10, Period: 100},
	}
	tree := FromReservedTimes(reserved, 250)

	assert.Equal(t, 3, tree.Size())
	assert.Equal(t, 5, tree.Overlap(domain.Interval{Start: 5, End: 15}))
	assert.Equal(t, 30, tree.Overlap(domain.Interval{Start: 0, End: 250}))
}

func TestFromReservedTimesOccurrenceAtHorizon(t *testing.T) {
	// 最后一次出现恰好从上界开始并越过上界，零时长的出现也要能被放进树中
	reserved := []domain.ReservedTime{
		{Title: "上课", StartOffset: 0, Duration: 10, Period: 100},
		{Title: "打卡", StartOffset: 1, Duration: 0, Period: 1},
		{Title: "午饭", StartOffset: 199, Duration: 60, Period: 1},
	}
	tree := FromReservedTimes(reserved, 200)

	var all []domain.Interval
	for _, rt := range reserved {
		all = append(all, rt.Intervals(200)...)
	}
	require.Equal(t, len(all), tree.Size())
	checkInvariants(t, tree.root)

	for _, q := range []domain.Interval{
		{Start: 195, End: 205},
		{Start: 200, End: 260},
		{Start: 0, End: 300},
		{Start: 150, End: 151},
	} {
		assert.Equal(t, bruteForceOverlap(all, q), tree.Overlap(q), "query %+v", q)
	}
}

func BenchmarkOverlap(b *testing.B) {
	reserved := []domain.ReservedTime{
		{Title: "睡觉", StartOffset: 0, Duration: 480, Period: 1440},
		{Title: "上课", StartOffset: 540, Duration: 90, Period: 180},
		{Title: "喝水", StartOffset: 30, Duration: 5, Period: 60},
	}
	tree := FromReservedTimes(reserved, 7*1440)
	q := domain.Interval{Start: 3000, End: 3120}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Overlap(q)
	}
}
