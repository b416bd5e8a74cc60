package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
	JobStatusFailed   JobStatus = "failed"
)

type OptimizationJob struct {
	ID           uuid.UUID           `json:"id"`
	Fingerprint  string              `json:"fingerprint"`
	Status       JobStatus           `json:"status"`
	Problem      Problem             `json:"problem"`
	Result       *OptimizationResult `json:"result"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	Version      int32               `json:"-"`
}

// OptimizationResult 是一次优化的最终结果，只保留最后一代中最优的个体
type OptimizationResult struct {
	BestSchedule []int      `json:"bestSchedule"`
	BestFitness  int        `json:"bestFitness"`
	Intervals    []Interval `json:"intervals"` // 任务区间在前，保留时间区间在后
	Generations  int        `json:"generations"`
	DurationMS   int64      `json:"durationMS"`
}

// GenerationStats 是每一代的统计数据
type GenerationStats struct {
	Generation   int     `json:"generation"`
	BestFitness  int     `json:"bestFitness"`
	AvgFitness   float64 `json:"avgFitness"`
	BestSchedule []int   `json:"bestSchedule"`
}
