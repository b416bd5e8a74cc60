package domain

// TimeBlock 是任务与保留时间共有的能力：有标题、有时长，并且可以在给定的开始时间落成一个区间
type TimeBlock interface {
	BlockTitle() string
	BlockDuration() int
	At(start int) Interval
}

var (
	_ TimeBlock = Task{}
	_ TimeBlock = ReservedTime{}
)

// Task 是需要被安排开始时间的任务，在一次优化过程中不可变
type Task struct {
	Title    string `json:"title" yaml:"title" validate:"required"`
	Priority int    `json:"priority" yaml:"priority"` // 数字越小越应该先完成
	Duration int    `json:"duration" yaml:"duration" validate:"min=0"`
}

func (t Task) BlockTitle() string { return t.Title }

func (t Task) BlockDuration() int { return t.Duration }

// At 返回任务从 start 开始时占用的区间
func (t Task) At(start int) Interval {
	return Interval{
		Start: start,
		End:   start + t.Duration,
		Label: t.Title,
	}
}

// ReservedTime 表示周期性重复出现的保留时间（如睡觉、上课），任务应尽量避开
// 第 k 次出现的开始时间为 StartOffset + k*Period
type ReservedTime struct {
	Title       string `json:"title" yaml:"title" validate:"required"`
	StartOffset int    `json:"startOffset" yaml:"start_offset" validate:"min=0"`
	Duration    int    `json:"duration" yaml:"duration" validate:"min=0"`
	Period      int    `json:"period" yaml:"period" validate:"required,gt=0"`
}

func (r ReservedTime) BlockTitle() string { return r.Title }

func (r ReservedTime) BlockDuration() int { return r.Duration }

// At 返回保留时间在 start 处的一次出现
func (r ReservedTime) At(start int) Interval {
	return Interval{
		Start: start,
		End:   start + r.Duration,
		Label: r.Title,
	}
}

// Count 返回在 [0, horizon] 内开始的出现次数
// 调用方需要保证 horizon >= StartOffset
func (r ReservedTime) Count(horizon int) int {
	return (horizon-r.StartOffset)/r.Period + 1
}

// Intervals 展开 horizon 之前所有的出现
func (r ReservedTime) Intervals(horizon int) []Interval {
	n := r.Count(horizon)
	if n <= 0 {
		return nil
	}

	intervals := make([]Interval, 0, n)
	for k := 0; k < n; k++ {
		intervals = append(intervals, r.At(r.StartOffset+k*r.Period))
	}

	return intervals
}
