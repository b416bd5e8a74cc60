package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/utils"
)

// EvaluateFitness 计算给定排班的适应度，便于调用方比较人工排班与优化结果
func (h *Handler) EvaluateFitness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Problem  domain.Problem `json:"problem"`
		Schedule []int          `json:"schedule" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validateProblem(&req.Problem); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateScheduleWithProblem(req.Schedule, &req.Problem); err != nil {
		h.badRequest(w, r, err)
		return
	}

	s, err := scheduler.New(nil, req.Problem.MaxTime, req.Problem.Tasks, req.Problem.ReservedTimes)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	schedule := scheduler.Schedule(req.Schedule)
	h.successResponse(w, r, "计算适应度成功", map[string]any{
		"fitness":   s.Fitness(schedule),
		"intervals": s.Intervals(schedule),
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "ok", map[string]string{
		"environment": h.config.Environment,
	})
}
