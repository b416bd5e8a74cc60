package scheduler

import (
	"fmt"
	"math"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

// randomSchedule 随机初始化一个染色体，每个任务的开始时间均匀分布在 [0, maxTime) 中
func (s *Scheduler) randomSchedule() Schedule {
	ch := make(Schedule, len(s.tasks))
	for i := range ch {
		ch[i] = s.rng.Intn(s.maxTime)
	}
	return ch
}

/**
 * 计算染色体的适应度（越小越好，0 为最优）
 * fitness = TaskOverlapWeight * taskOverlap + PriorityWeight * priorityInversions + ReservedTimeOverlapWeight * reservedOverlap
 * 其中:
 * 		1. taskOverlap 为任意两个任务之间的重叠时长之和
 * 		2. priorityInversions 为开始顺序与优先级顺序相反的任务对的优先级差之和
 * 		3. reservedOverlap 为所有任务与保留时间的重叠时长之和
 * 三项先以浮点数加权求和，最后再取整
 * 调用方需要保证 len(ch) 等于任务数
 */
func (s *Scheduler) Fitness(ch Schedule) int {
	intervals := s.taskIntervals(ch)

	taskOverlap := 0
	priorityInversions := 0
	for i := 0; i < len(intervals)-1; i++ {
		for j := i + 1; j < len(intervals); j++ {
			taskOverlap += domain.Overlap(intervals[i], intervals[j])

			pi, pj := s.tasks[i].Priority, s.tasks[j].Priority
			if (ch[i] < ch[j] && pi > pj) || (ch[i] > ch[j] && pi < pj) {
				priorityInversions += abs(pi - pj)
			}
		}
	}

	reservedOverlap := 0
	for _, iv := range intervals {
		reservedOverlap += s.reserved.Overlap(iv)
	}

	fitness := float64(taskOverlap)*s.parameters.TaskOverlapWeight +
		float64(priorityInversions)*s.parameters.PriorityWeight +
		float64(reservedOverlap)*s.parameters.ReservedTimeOverlapWeight

	return int(fitness)
}

// 锦标赛选择，返回被选中个体的下标
// 有放回地抽取 SelectionT 个个体，适应度严格更小者胜出，相同时保留先抽到的
func (s *Scheduler) selectByTournament(fitnesses []int) int {
	best := s.rng.Intn(len(fitnesses))

	for i := 1; i < s.parameters.SelectionT; i++ {
		other := s.rng.Intn(len(fitnesses))
		if fitnesses[other] < fitnesses[best] {
			best = other
		}
	}

	return best
}

// 两点交叉
// 交换两个父本在 [point1, point2] 之间的基因，得到两个子代，父本本身不会被修改
func (s *Scheduler) twoPointCrossover(p1, p2 Schedule) (Schedule, Schedule) {
	length := len(p1)
	c1 := make(Schedule, length)
	c2 := make(Schedule, length)

	if length == 0 {
		return c1, c2
	}

	point1 := s.rng.Intn(length)
	point2 := s.rng.Intn(length-point1) + point1

	for i := 0; i < length; i++ {
		if i >= point1 && i <= point2 {
			c1[i], c2[i] = p2[i], p1[i]
		} else {
			c1[i], c2[i] = p1[i], p2[i]
		}
	}

	return c1, c2
}

// 变异
// 每个基因以 MutationP 的概率加上一个服从 N(0, MutationStdDev^2) 的整数偏移，
// 偏移后超出 [0, maxTime] 时重新抽样而不是截断
func (s *Scheduler) mutate(ch Schedule) error {
	for i := range ch {
		if s.rng.Float64() > s.parameters.MutationP {
			continue
		}

		for attempt := 1; ; attempt++ {
			dt := int(math.Round(s.rng.NormFloat64() * s.parameters.MutationStdDev))
			if v := ch[i] + dt; v >= 0 && v <= s.maxTime {
				ch[i] = v
				break
			}

			if attempt >= s.parameters.MaxMutationAttempts {
				return fmt.Errorf("%w: 基因 %d 的值为 %d，时间上界为 %d", ErrMutationRetriesExhausted, i, ch[i], s.maxTime)
			}
		}
	}

	return nil
}
