// Package runner 执行单个优化任务：运行遗传算法、保存结果、写缓存并发送通知
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/statslog"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/utils"
)

// ErrJobFailed 表示任务本身无法完成（参数无效、变异无法收敛等），重试也不会成功
var ErrJobFailed = errors.New("优化任务失败")

type JobStore interface {
	GetOptimizationJobByID(id uuid.UUID) (*domain.OptimizationJob, error)
	UpdateOptimizationJobStatus(job *domain.OptimizationJob) error
	SaveOptimizationResult(job *domain.OptimizationJob, stats []domain.GenerationStats) error
}

type ResultCache interface {
	SetFinishedJobID(ctx context.Context, fingerprint string, id uuid.UUID) error
}

type Notifier interface {
	NotifyJobFinished(ctx context.Context, job *domain.OptimizationJob) error
}

type Runner struct {
	store     JobStore
	cache     ResultCache
	notifier  Notifier
	optimizer *config.Optimizer
	logger    *slog.Logger
	statsDir  string // 不为空时额外把每一代的统计数据写成 <jobID>.csv
}

type Option func(r *Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithStatsDir(dir string) Option {
	return func(r *Runner) {
		r.statsDir = dir
	}
}

func New(store JobStore, cache ResultCache, notifier Notifier, optimizer *config.Optimizer, opts ...Option) *Runner {
	r := &Runner{
		store:     store,
		cache:     cache,
		notifier:  notifier,
		optimizer: optimizer,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ExecuteByID 读取任务后执行
func (r *Runner) ExecuteByID(ctx context.Context, id uuid.UUID) error {
	job, err := r.store.GetOptimizationJobByID(id)
	if err != nil {
		return err
	}

	return r.Execute(ctx, job)
}

// Execute 执行任务
// 任务本身失败时会把任务标记为 failed 并返回包装了 ErrJobFailed 的错误，其余错误可以重试
func (r *Runner) Execute(ctx context.Context, job *domain.OptimizationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// 消息可能被重复投递
	if job.Status == domain.JobStatusFinished {
		r.logger.Info("任务已完成，跳过", "jobID", job.ID)
		return nil
	}

	// 统计文件打不开时不标记失败，交给调用方重试
	statsWriter, err := r.openStatsFile(job)
	if err != nil {
		return err
	}
	if statsWriter != nil {
		defer func() {
			if err := statsWriter.Close(); err != nil {
				r.logger.Warn("无法写入统计文件", "jobID", job.ID, "error", err)
			}
		}()
	}

	job.Status = domain.JobStatusRunning
	job.ErrorMessage = ""
	if err := r.store.UpdateOptimizationJobStatus(job); err != nil {
		return err
	}

	metrics.JobStarted()
	defer metrics.JobDone()

	start := time.Now()
	result, stats, err := r.optimize(job, statsWriter)
	if err != nil {
		return r.fail(ctx, job, err)
	}

	// 遗传算法本身不可中断，运行结束后再检查一次，未保存的任务会在重新投递后再次执行
	if err := ctx.Err(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	result.DurationMS = elapsed.Milliseconds()
	job.Result = result

	if err := r.store.SaveOptimizationResult(job, stats); err != nil {
		if errors.Is(err, repository.ErrRejected) {
			job.Result = nil
			return r.fail(ctx, job, err)
		}
		return err
	}

	metrics.RecordJob(string(domain.JobStatusFinished), elapsed.Seconds())
	r.logger.Info("任务已完成", "jobID", job.ID, "bestFitness", result.BestFitness, "generations", result.Generations, "duration", elapsed)

	if err := r.cache.SetFinishedJobID(ctx, job.Fingerprint, job.ID); err != nil {
		// 缓存失败不影响结果
		r.logger.Warn("无法写入结果缓存", "jobID", job.ID, "error", err)
	}

	r.notify(ctx, job)

	return nil
}

func (r *Runner) openStatsFile(job *domain.OptimizationJob) (*statslog.CSVWriter, error) {
	if r.statsDir == "" {
		return nil, nil
	}
	return statslog.CreateCSVFile(filepath.Join(r.statsDir, job.ID.String()+".csv"), job.Problem.Tasks)
}

func (r *Runner) generations(p *domain.Problem) (int, error) {
	n := p.Generations
	if n == 0 {
		n = r.optimizer.DefaultGenerations
	}
	if r.optimizer.MaxGenerations > 0 && n > r.optimizer.MaxGenerations {
		return 0, fmt.Errorf("代数 %d 超过上限 %d", n, r.optimizer.MaxGenerations)
	}
	return n, nil
}

// optimize 运行遗传算法，返回的错误都与任务本身有关
func (r *Runner) optimize(job *domain.OptimizationJob, statsWriter *statslog.CSVWriter) (*domain.OptimizationResult, []domain.GenerationStats, error) {
	p := &job.Problem

	// 任务可能不是经由 api 创建的，展开保留时间之前再检查一次规模
	if err := utils.ValidateProblem(p); err != nil {
		return nil, nil, err
	}
	if err := r.optimizer.CheckLimits(p); err != nil {
		return nil, nil, err
	}

	nGenerations, err := r.generations(p)
	if err != nil {
		return nil, nil, err
	}

	parameters := r.optimizer.Parameters()
	if p.Seed != nil {
		parameters.Seed = *p.Seed
	}

	collector := statslog.NewCollector()
	opts := []scheduler.Option{
		scheduler.WithLogger(r.logger.With("jobID", job.ID)),
		scheduler.WithObserver(collector),
		scheduler.WithObserver(metrics.GenerationObserver{}),
	}
	if statsWriter != nil {
		opts = append(opts, scheduler.WithObserver(statsWriter))
	}

	s, err := scheduler.New(parameters, p.MaxTime, p.Tasks, p.ReservedTimes, opts...)
	if err != nil {
		return nil, nil, err
	}

	pop, err := s.Run(nGenerations)
	if err != nil {
		return nil, nil, err
	}

	best, fitness := s.Best(pop)

	return &domain.OptimizationResult{
		BestSchedule: best,
		BestFitness:  fitness,
		Intervals:    s.Intervals(best),
		Generations:  nGenerations,
	}, collector.Stats(), nil
}

func (r *Runner) fail(ctx context.Context, job *domain.OptimizationJob, cause error) error {
	r.logger.Error("任务失败", "jobID", job.ID, "error", cause)
	metrics.RecordJob(string(domain.JobStatusFailed), 0)

	job.Status = domain.JobStatusFailed
	job.ErrorMessage = cause.Error()
	if err := r.store.UpdateOptimizationJobStatus(job); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrJobFailed, cause), err)
	}

	r.notify(ctx, job)

	return fmt.Errorf("%w: %w", ErrJobFailed, cause)
}

func (r *Runner) notify(ctx context.Context, job *domain.OptimizationJob) {
	if job.Problem.NotifyEmail == "" {
		return
	}

	if err := r.notifier.NotifyJobFinished(ctx, job); err != nil {
		r.logger.Warn("无法发送任务通知", "jobID", job.ID, "error", err)
	}
}
