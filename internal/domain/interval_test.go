package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want int
	}{
		{"相离", Interval{Start: 0, End: 10}, Interval{Start: 20, End: 30}, 0},
		{"首尾相接", Interval{Start: 0, End: 10}, Interval{Start: 10, End: 20}, 0},
		{"部分重叠", Interval{Start: 0, End: 10}, Interval{Start: 5, End: 15}, 5},
		{"包含", Interval{Start: 0, End: 100}, Interval{Start: 20, End: 30}, 10},
		{"相同", Interval{Start: 3, End: 9}, Interval{Start: 3, End: 9}, 6},
		{"空区间", Interval{Start: 5, End: 5}, Interval{Start: 0, End: 10}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlap(tc.a, tc.b))
			assert.Equal(t, tc.want, tc.b.Overlap(tc.a))
		})
	}
}

func TestOverlapSymmetricAndNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		as := rng.Intn(200)
		bs := rng.Intn(200)
		a := Interval{Start: as, End: as + rng.Intn(50)}
		b := Interval{Start: bs, End: bs + rng.Intn(50)}

		ab := Overlap(a, b)
		assert.Equal(t, ab, Overlap(b, a))
		assert.GreaterOrEqual(t, ab, 0)
		if a.End <= b.Start || b.End <= a.Start {
			assert.Zero(t, ab)
		}
	}
}

func TestTaskAt(t *testing.T) {
	task := Task{Title: "写报告", Priority: 1, Duration: 45}

	iv := task.At(30)
	assert.Equal(t, Interval{Start: 30, End: 75, Label: "写报告"}, iv)
	assert.Equal(t, 45, iv.Length())
}
