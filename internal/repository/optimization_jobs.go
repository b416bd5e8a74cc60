package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

func (r *Repository) CreateOptimizationJob(job *domain.OptimizationJob) error {
	problem, err := json.Marshal(job.Problem)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO optimization_jobs (id, fingerprint, status, problem)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{job.ID, job.Fingerprint, job.Status, problem}
	dst := []any{&job.CreatedAt, &job.UpdatedAt, &job.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetOptimizationJobByID(id uuid.UUID) (*domain.OptimizationJob, error) {
	query := `
		SELECT
			fingerprint,
			status,
			problem,
			result,
			error_message,
			created_at,
			updated_at,
			version
		FROM optimization_jobs
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	job := &domain.OptimizationJob{ID: id}
	var problem, result []byte
	dst := []any{
		&job.Fingerprint,
		&job.Status,
		&problem,
		&result,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := decodeJob(job, problem, result); err != nil {
		return nil, err
	}

	return job, nil
}

// GetLatestFinishedJobByFingerprint 在缓存失效时用于查找相同问题已经完成的任务
func (r *Repository) GetLatestFinishedJobByFingerprint(fingerprint string) (*domain.OptimizationJob, error) {
	query := `
		SELECT
			id,
			status,
			problem,
			result,
			error_message,
			created_at,
			updated_at,
			version
		FROM optimization_jobs
		WHERE fingerprint = $1 AND status = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	job := &domain.OptimizationJob{Fingerprint: fingerprint}
	var problem, result []byte
	dst := []any{
		&job.ID,
		&job.Status,
		&problem,
		&result,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, fingerprint, domain.JobStatusFinished).Scan(dst...); err != nil {
		return nil, err
	}

	if err := decodeJob(job, problem, result); err != nil {
		return nil, err
	}

	return job, nil
}

func decodeJob(job *domain.OptimizationJob, problem, result []byte) error {
	if err := json.Unmarshal(problem, &job.Problem); err != nil {
		return err
	}

	// 未完成的任务没有结果
	if len(result) == 0 {
		return nil
	}

	job.Result = &domain.OptimizationResult{}
	return json.Unmarshal(result, job.Result)
}

// UpdateOptimizationJobStatus 只更新状态与错误信息
// 版本号不一致时返回 sql.ErrNoRows
func (r *Repository) UpdateOptimizationJobStatus(job *domain.OptimizationJob) error {
	query := `
		UPDATE optimization_jobs
		SET
			status = $1,
			error_message = $2,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING updated_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{job.Status, job.ErrorMessage, job.ID, job.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&job.UpdatedAt, &job.Version); err != nil {
		return err
	}

	return nil
}

// SaveOptimizationResult 在一个事务中写入结果以及每一代的统计数据，并把任务标记为完成
func (r *Repository) SaveOptimizationResult(job *domain.OptimizationJob, stats []domain.GenerationStats) error {
	result, err := json.Marshal(job.Result)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE optimization_jobs
		SET
			status = $1,
			result = $2,
			error_message = '',
			updated_at = NOW(),
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING updated_at, version
	`

	// 提交成功之前不修改 job，回滚后调用方仍然可以用原来的版本号更新状态
	var updatedAt time.Time
	var version int32
	params := []any{domain.JobStatusFinished, result, job.ID, job.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&updatedAt, &version); err != nil {
		return rejected(err)
	}

	// 重新执行同一个任务时覆盖之前的统计数据
	query = `DELETE FROM generation_stats WHERE job_id = $1`
	if _, err := tx.ExecContext(ctx, query, job.ID); err != nil {
		return err
	}

	query = `
		INSERT INTO generation_stats (job_id, generation, best_fitness, avg_fitness, best_schedule)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, s := range stats {
		schedule, err := json.Marshal(s.BestSchedule)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, job.ID, s.Generation, s.BestFitness, s.AvgFitness, schedule); err != nil {
			return rejected(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	job.UpdatedAt = updatedAt
	job.Version = version
	job.Status = domain.JobStatusFinished

	return nil
}

func (r *Repository) GetGenerationStats(jobID uuid.UUID) ([]domain.GenerationStats, error) {
	query := `
		SELECT generation, best_fitness, avg_fitness, best_schedule
		FROM generation_stats
		WHERE job_id = $1
		ORDER BY generation
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []domain.GenerationStats{}
	for rows.Next() {
		var s domain.GenerationStats
		var schedule []byte
		if err := rows.Scan(&s.Generation, &s.BestFitness, &s.AvgFitness, &schedule); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(schedule, &s.BestSchedule); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
