package scheduler

import (
	"errors"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

// Schedule 染色体：Schedule[i] 是 tasks[i] 的开始时间
type Schedule []int

// Population 一代中的所有染色体，无序
type Population []Schedule

// 遗传算法参数
type Parameters struct {
	GenSize        int     // 种群大小
	MutationP      float64 // 每个基因发生变异的概率
	MutationStdDev float64 // 变异量（正态分布）的标准差
	SelectionT     int     // 锦标赛规模

	TaskOverlapWeight         float64 // 任务之间重叠的权重
	ReservedTimeOverlapWeight float64 // 任务与保留时间重叠的权重
	PriorityWeight            float64 // 优先级逆序的权重

	Seed                int64 // 随机数种子
	MaxMutationAttempts int   // 单个基因变异时重新抽样的次数上限
	Workers             int   // 并行计算适应度的 goroutine 数量，不大于 1 时串行计算
}

func DefaultParameters() *Parameters {
	return &Parameters{
		GenSize:        50,
		MutationP:      0.3,
		MutationStdDev: 60,
		SelectionT:     2,

		TaskOverlapWeight:         1,
		ReservedTimeOverlapWeight: 0.3,
		PriorityWeight:            100,

		Seed:                12,
		MaxMutationAttempts: 10000,
		Workers:             1,
	}
}

var (
	ErrInvalidHorizon           = errors.New("时间上界不能为负数，有任务时必须大于 0")
	ErrInvalidParameters        = errors.New("遗传算法参数无效")
	ErrMutationRetriesExhausted = errors.New("变异重新抽样次数超过上限")
)

// Observer 在每一代的适应度计算完成后接收统计数据
type Observer interface {
	ObserveGeneration(stats domain.GenerationStats)
}

type ObserverFunc func(stats domain.GenerationStats)

func (f ObserverFunc) ObserveGeneration(stats domain.GenerationStats) {
	f(stats)
}
