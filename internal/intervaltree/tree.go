// Package intervaltree 实现不可变的中心区间树，用于快速计算一个区间与大量保留时间区间的总重叠量。
//
// 每个节点保存所有包含（或端点恰好落在）中心点的区间，分别按开始时间升序与结束时间降序存放两份；
// 完全位于中心点左侧的区间进入左子树，完全位于右侧的进入右子树。
// 树在构建后不再修改，可以被多个 goroutine 同时查询。
package intervaltree

import (
	"slices"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

type node struct {
	center int

	left  *node
	right *node

	byStart []domain.Interval // 按开始时间升序
	byEnd   []domain.Interval // 按结束时间降序

	nodeSize int // 本节点的区间数
	treeSize int // 以本节点为根的子树中的区间总数
}

// Tree 是中心区间树
type Tree struct {
	root *node
}

// New 在值域 [lo, hi] 上用给定区间构建一棵树
func New(lo, hi int, intervals []domain.Interval) *Tree {
	if len(intervals) == 0 {
		return &Tree{}
	}

	return &Tree{root: newNode(lo, hi, intervals)}
}

// FromReservedTimes 展开 [0, horizon] 内所有保留时间的出现并构建树
func FromReservedTimes(reservedTimes []domain.ReservedTime, horizon int) *Tree {
	var intervals []domain.Interval
	for _, rt := range reservedTimes {
		intervals = append(intervals, rt.Intervals(horizon)...)
	}

	return New(0, horizon, intervals)
}

func newNode(lo, hi int, intervals []domain.Interval) *node {
	n := &node{
		center:   (lo + hi) / 2,
		treeSize: len(intervals),
	}

	var centered, left, right []domain.Interval
	for _, iv := range intervals {
		switch {
		case iv.Start <= n.center && n.center <= iv.End:
			centered = append(centered, iv)
		case iv.End < n.center:
			left = append(left, iv)
		default:
			right = append(right, iv)
		}
	}

	n.nodeSize = len(centered)
	n.byStart = slices.Clone(centered)
	n.byEnd = slices.Clone(centered)
	slices.SortStableFunc(n.byStart, domain.CompareByStart)
	slices.SortStableFunc(n.byEnd, func(a, b domain.Interval) int {
		return b.End - a.End
	})

	if len(left) > 0 {
		childLo, childHi := childRange(lo, hi, lo, n.center, left)
		n.left = newNode(childLo, childHi, left)
	}
	if len(right) > 0 {
		childLo, childHi := childRange(lo, hi, n.center, hi, right)
		n.right = newNode(childLo, childHi, right)
	}

	return n
}

// childRange 返回子节点的值域。当值域无法再缩小时（例如区间恰好从上界开始，或者超出了上界），
// 改用这些区间自身的范围，保证递归能够结束
func childRange(lo, hi, childLo, childHi int, intervals []domain.Interval) (int, int) {
	if childLo != lo || childHi != hi {
		return childLo, childHi
	}

	minStart, maxEnd := intervals[0].Start, intervals[0].End
	for _, iv := range intervals[1:] {
		minStart = min(minStart, iv.Start)
		maxEnd = max(maxEnd, iv.End)
	}

	return minStart, maxEnd
}

// Overlap 返回 q 与树中所有区间的重叠量之和
func (t *Tree) Overlap(q domain.Interval) int {
	return t.root.overlap(q)
}

func (n *node) overlap(q domain.Interval) int {
	if n == nil {
		return 0
	}

	sum := 0
	switch {
	case q.End < n.center:
		// 查询区间完全在中心点左侧，右子树中的区间都从中心点之后开始，不可能重叠
		for _, iv := range n.byStart {
			if iv.Start >= q.End {
				break
			}
			sum += domain.Overlap(q, iv)
		}
		return sum + n.left.overlap(q)
	case q.Start > n.center:
		for _, iv := range n.byEnd {
			if iv.End <= q.Start {
				break
			}
			sum += domain.Overlap(q, iv)
		}
		return sum + n.right.overlap(q)
	default:
		// 查询区间跨过中心点，两侧都要查
		for _, iv := range n.byStart {
			sum += domain.Overlap(q, iv)
		}
		return sum + n.left.overlap(q) + n.right.overlap(q)
	}
}

// Size 返回树中的区间总数
func (t *Tree) Size() int {
	if t.root == nil {
		return 0
	}
	return t.root.treeSize
}

// Intervals 按中序遍历返回树中所有区间：左子树、本节点（按开始时间）、右子树
func (t *Tree) Intervals() []domain.Interval {
	intervals := make([]domain.Interval, 0, t.Size())
	return t.root.appendInOrder(intervals)
}

func (n *node) appendInOrder(dst []domain.Interval) []domain.Interval {
	if n == nil {
		return dst
	}

	dst = n.left.appendInOrder(dst)
	dst = append(dst, n.byStart...)
	return n.right.appendInOrder(dst)
}
