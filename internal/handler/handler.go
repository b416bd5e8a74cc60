package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

// JobStore 由 *repository.Repository 实现
type JobStore interface {
	CreateOptimizationJob(job *domain.OptimizationJob) error
	GetOptimizationJobByID(id uuid.UUID) (*domain.OptimizationJob, error)
	GetLatestFinishedJobByFingerprint(fingerprint string) (*domain.OptimizationJob, error)
	GetGenerationStats(jobID uuid.UUID) ([]domain.GenerationStats, error)
}

// ResultCache 由 *cache.ResultCache 实现
type ResultCache interface {
	GetFinishedJobID(ctx context.Context, fingerprint string) (uuid.UUID, bool, error)
	SetFinishedJobID(ctx context.Context, fingerprint string, id uuid.UUID) error
}

// Publisher 由 *queue.Publisher 实现
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

// Notifier 由 *queue.MailNotifier 实现
type Notifier interface {
	NotifyJobFinished(ctx context.Context, job *domain.OptimizationJob) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  JobStore
	translator  ut.Translator
	publisher   Publisher
	resultCache ResultCache
	notifier    Notifier

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo JobStore, publisher Publisher, resultCache ResultCache, notifier Notifier) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		publisher:   publisher,
		resultCache: resultCache,
		notifier:    notifier,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Healthz)
	h.Mux.Handle("/metrics", promhttp.Handler())

	// 只做计算，不落库
	h.Mux.Post("/fitness", h.EvaluateFitness)

	// 以下 API 必须携带有效的令牌
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/optimization-jobs", func(r chi.Router) {
			r.Post("/", h.CreateOptimizationJob)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.optimizationJob)
				r.Get("/", h.GetOptimizationJob)
				r.Get("/stats", h.GetOptimizationJobStats)
			})
		})
	})
}
