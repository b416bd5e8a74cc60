package utils

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

// 优先级与时长的取值范围，保证适应度不会超出 64 位整数
const (
	MaxPriority = 1_000_000
	MaxDuration = 1<<31 - 1
)

// ValidateProblem 检查结构体校验无法表达的约束
func ValidateProblem(p *domain.Problem) error {
	if p.MaxTime <= 0 {
		return errors.New("时间上界必须大于 0")
	}

	for i, t := range p.Tasks {
		if t.Priority < -MaxPriority || t.Priority > MaxPriority {
			return fmt.Errorf("任务 %d（%s）的优先级必须在 [%d, %d] 之间", i+1, t.Title, -MaxPriority, MaxPriority)
		}
		if t.Duration < 0 || t.Duration > MaxDuration {
			return fmt.Errorf("任务 %d（%s）的时长必须在 [0, %d] 之间", i+1, t.Title, MaxDuration)
		}
	}

	for i, rt := range p.ReservedTimes {
		if rt.Period <= 0 {
			return fmt.Errorf("保留时间 %d（%s）的周期必须大于 0", i+1, rt.Title)
		}
		if rt.Duration < 0 || rt.Duration > MaxDuration {
			return fmt.Errorf("保留时间 %d（%s）的时长必须在 [0, %d] 之间", i+1, rt.Title, MaxDuration)
		}
		// 否则展开出的次数不是正数
		if rt.StartOffset > p.MaxTime {
			return fmt.Errorf("保留时间 %d（%s）的起始偏移 %d 不能大于时间上界 %d", i+1, rt.Title, rt.StartOffset, p.MaxTime)
		}
	}

	return nil
}

// ValidateScheduleWithProblem 检查一个排班是否与问题中的任务一一对应，并且开始时间都在 [0, MaxTime] 内
func ValidateScheduleWithProblem(schedule []int, p *domain.Problem) error {
	if len(schedule) != len(p.Tasks) {
		return fmt.Errorf("排班中的开始时间数量 %d 与任务数量 %d 不匹配", len(schedule), len(p.Tasks))
	}

	for i, start := range schedule {
		if start < 0 || start > p.MaxTime {
			return fmt.Errorf("任务 %d（%s）的开始时间 %d 超出了 [0, %d]", i+1, p.Tasks[i].Title, start, p.MaxTime)
		}
	}

	return nil
}
