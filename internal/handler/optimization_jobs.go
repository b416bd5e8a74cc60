package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/utils"
)

// validateProblem 依次做结构体校验、跨字段校验以及服务端的规模限制
func (h *Handler) validateProblem(p *domain.Problem) error {
	if err := h.validate.Struct(p); err != nil {
		return err
	}
	if err := utils.ValidateProblem(p); err != nil {
		return err
	}

	// 保留时间会在时间上界内全部展开，规模必须在展开之前检查
	return h.config.Optimizer.CheckLimits(p)
}

func (h *Handler) CreateOptimizationJob(w http.ResponseWriter, r *http.Request) {
	var req domain.Problem

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validateProblem(&req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	fingerprint, err := req.Fingerprint()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 相同的问题已经优化过时直接返回之前的结果
	if job := h.findFinishedJob(r, fingerprint); job != nil {
		metrics.RecordJob("cached", 0)
		if req.NotifyEmail != "" {
			h.notifyRequester(r, job, req.NotifyEmail)
		}
		h.successResponse(w, r, "相同的问题已经优化过", withoutNotifyEmail(job))
		return
	}

	job := &domain.OptimizationJob{
		ID:          uuid.New(),
		Fingerprint: fingerprint,
		Status:      domain.JobStatusPending,
		Problem:     req,
	}
	if err := h.repository.CreateOptimizationJob(job); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 投递到优化队列中，由 worker 执行
	if err := h.publisher.PublishJSON(r.Context(), h.config.RabbitMQ.OptimizationQueue, domain.OptimizationMessage{
		JobID: job.ID.String(),
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "优化任务已提交", job)
}

// findFinishedJob 先查 redis，未命中再查数据库，任何错误都视为未命中
func (h *Handler) findFinishedJob(r *http.Request, fingerprint string) *domain.OptimizationJob {
	id, ok, err := h.resultCache.GetFinishedJobID(r.Context(), fingerprint)
	if err != nil {
		slog.Warn("无法读取结果缓存", "fingerprint", fingerprint, "error", err)
	}

	if ok {
		job, err := h.repository.GetOptimizationJobByID(id)
		if err == nil && job.Status == domain.JobStatusFinished {
			return job
		}
	}

	job, err := h.repository.GetLatestFinishedJobByFingerprint(fingerprint)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("无法查询已完成的任务", "fingerprint", fingerprint, "error", err)
		}
		return nil
	}

	if err := h.resultCache.SetFinishedJobID(r.Context(), fingerprint, job.ID); err != nil {
		slog.Warn("无法写入结果缓存", "fingerprint", fingerprint, "error", err)
	}

	return job
}

// withoutNotifyEmail 返回不含通知邮箱的副本
// 相同的问题会共享同一个任务，邮箱属于最先提交的调用方，不能返回给其他人
func withoutNotifyEmail(job *domain.OptimizationJob) *domain.OptimizationJob {
	c := *job
	c.Problem.NotifyEmail = ""
	return &c
}

// notifyRequester 向命中已完成任务的调用方发送通知，失败时只记录日志
func (h *Handler) notifyRequester(r *http.Request, job *domain.OptimizationJob, email string) {
	c := *job
	c.Problem.NotifyEmail = email
	if err := h.notifier.NotifyJobFinished(r.Context(), &c); err != nil {
		slog.Warn("无法发送任务通知", "jobID", job.ID, "error", err)
	}
}

func (h *Handler) GetOptimizationJob(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(OptimizationJobCtx).(*domain.OptimizationJob)
	h.successResponse(w, r, "获取任务成功", withoutNotifyEmail(job))
}

func (h *Handler) GetOptimizationJobStats(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(OptimizationJobCtx).(*domain.OptimizationJob)

	stats, err := h.repository.GetGenerationStats(job.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取统计数据成功", stats)
}
