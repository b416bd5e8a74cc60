package domain

// Interval 表示一段时间区间 [Start, End)，时间单位为分钟
type Interval struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label,omitempty"`
}

// Length 返回区间长度
func (i Interval) Length() int {
	return i.End - i.Start
}

// Overlap 计算两个区间的重叠长度，相离或首尾相接时为 0
func Overlap(a, b Interval) int {
	return max(0, min(a.End, b.End)-max(a.Start, b.Start))
}

// Overlap 计算 i 与 other 的重叠长度
func (i Interval) Overlap(other Interval) int {
	return Overlap(i, other)
}

// CompareByStart 按开始时间排序
func CompareByStart(a, b Interval) int {
	return a.Start - b.Start
}
