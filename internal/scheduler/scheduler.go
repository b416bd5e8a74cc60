package scheduler

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/intervaltree"
	"golang.org/x/sync/errgroup"
)

// Scheduler 用遗传算法为一组任务安排开始时间
// 所有时间都是以 0 为基准的分钟偏移量
type Scheduler struct {
	parameters    *Parameters
	maxTime       int
	tasks         []domain.Task
	reservedTimes []domain.ReservedTime
	reserved      *intervaltree.Tree // 由 reservedTimes 在 [0, maxTime] 内展开得到，构建后只读
	rng           *rand.Rand         // 只属于这个 Scheduler，在多次 Run 之间持续推进
	logger        *slog.Logger
	observers     []Observer
}

type Option func(s *Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithObserver 注册每一代的统计数据接收者
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

func New(parameters *Parameters, maxTime int, tasks []domain.Task, reservedTimes []domain.ReservedTime, opts ...Option) (*Scheduler, error) {
	if parameters == nil {
		parameters = DefaultParameters()
	}
	// 没有任务时不需要抽样开始时间，时间上界可以为 0
	if maxTime < 0 || (maxTime == 0 && len(tasks) > 0) {
		return nil, ErrInvalidHorizon
	}
	if err := validateParameters(parameters); err != nil {
		return nil, err
	}

	s := &Scheduler{
		parameters:    parameters,
		maxTime:       maxTime,
		tasks:         slices.Clone(tasks),
		reservedTimes: slices.Clone(reservedTimes),
		reserved:      intervaltree.FromReservedTimes(reservedTimes, maxTime),
		rng:           rand.New(rand.NewSource(parameters.Seed)),
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func validateParameters(p *Parameters) error {
	switch {
	case p.GenSize < 2:
		return fmt.Errorf("%w: 种群大小至少为 2", ErrInvalidParameters)
	case p.SelectionT < 1:
		return fmt.Errorf("%w: 锦标赛规模至少为 1", ErrInvalidParameters)
	case p.MutationP < 0 || p.MutationP > 1:
		return fmt.Errorf("%w: 变异概率必须在 [0, 1] 之间", ErrInvalidParameters)
	case p.MutationStdDev <= 0:
		return fmt.Errorf("%w: 变异标准差必须大于 0", ErrInvalidParameters)
	case p.MaxMutationAttempts < 1:
		return fmt.Errorf("%w: 变异重新抽样次数上限至少为 1", ErrInvalidParameters)
	}
	return nil
}

// Run 迭代 nGenerations 代，返回最后一代（未排序）
// 选出最优个体由调用方负责
func (s *Scheduler) Run(nGenerations int) (Population, error) {
	s.logger.Debug("开始优化", "tasks", len(s.tasks), "reservedIntervals", s.reserved.Size(), "generations", nGenerations)

	// 生成初始种群，不去重
	pop := make(Population, s.parameters.GenSize)
	for i := range pop {
		pop[i] = s.randomSchedule()
	}

	for gen := 0; gen < nGenerations; gen++ {
		// 每一代只计算一次适应度
		fitnesses := s.evaluate(pop)

		stats := generationStats(gen, pop, fitnesses)
		for _, o := range s.observers {
			o.ObserveGeneration(stats)
		}
		s.logger.Debug("完成一代", "generation", gen, "bestFitness", stats.BestFitness, "avgFitness", stats.AvgFitness)

		// 繁殖
		newPop := make(Population, 0, s.parameters.GenSize)
		for len(newPop) < s.parameters.GenSize {
			// 选择两个父本
			p1 := pop[s.selectByTournament(fitnesses)]
			p2 := pop[s.selectByTournament(fitnesses)]

			c1, c2 := s.twoPointCrossover(p1, p2)

			if err := s.mutate(c1); err != nil {
				return nil, err
			}
			newPop = append(newPop, c1)

			if len(newPop) < s.parameters.GenSize {
				if err := s.mutate(c2); err != nil {
					return nil, err
				}
				newPop = append(newPop, c2)
			}
		}

		pop = newPop
	}

	return pop, nil
}

// evaluate 计算种群中每个个体的适应度
// 适应度只依赖于个体本身和只读的任务数据，因此可以并行计算而不影响随机数序列
func (s *Scheduler) evaluate(pop Population) []int {
	fitnesses := make([]int, len(pop))

	if s.parameters.Workers <= 1 {
		for i, ch := range pop {
			fitnesses[i] = s.Fitness(ch)
		}
		return fitnesses
	}

	var g errgroup.Group
	g.SetLimit(s.parameters.Workers)
	for i, ch := range pop {
		i, ch := i, ch
		g.Go(func() error {
			fitnesses[i] = s.Fitness(ch)
			return nil
		})
	}
	_ = g.Wait()

	return fitnesses
}

// Best 返回种群中适应度最小的个体及其适应度，相同时取靠前的
func (s *Scheduler) Best(pop Population) (Schedule, int) {
	if len(pop) == 0 {
		return nil, 0
	}

	fitnesses := s.evaluate(pop)
	best := bestIndex(fitnesses)
	return slices.Clone(pop[best]), fitnesses[best]
}

func (s *Scheduler) taskIntervals(ch Schedule) []domain.Interval {
	intervals := make([]domain.Interval, len(ch))
	for i := range ch {
		intervals[i] = s.tasks[i].At(ch[i])
	}
	return intervals
}

// Intervals 返回某个排班中所有任务的区间，以及所有保留时间的区间，用于展示
func (s *Scheduler) Intervals(ch Schedule) []domain.Interval {
	return append(s.taskIntervals(ch), s.reserved.Intervals()...)
}
