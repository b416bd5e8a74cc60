package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

type fakeStore struct {
	jobs    map[uuid.UUID]*domain.OptimizationJob
	created []*domain.OptimizationJob
}

func newFakeStore(jobs ...*domain.OptimizationJob) *fakeStore {
	s := &fakeStore{jobs: make(map[uuid.UUID]*domain.OptimizationJob)}
	for _, job := range jobs {
		s.jobs[job.ID] = job
	}
	return s
}

func (s *fakeStore) CreateOptimizationJob(job *domain.OptimizationJob) error {
	s.created = append(s.created, job)
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) GetOptimizationJobByID(id uuid.UUID) (*domain.OptimizationJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (s *fakeStore) GetLatestFinishedJobByFingerprint(fingerprint string) (*domain.OptimizationJob, error) {
	for _, job := range s.jobs {
		if job.Fingerprint == fingerprint && job.Status == domain.JobStatusFinished {
			return job, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetGenerationStats(jobID uuid.UUID) ([]domain.GenerationStats, error) {
	return []domain.GenerationStats{{Generation: 0, BestFitness: 3, AvgFitness: 4.5}}, nil
}

type fakeCache struct {
	entries map[string]uuid.UUID
	err     error
}

func (c *fakeCache) GetFinishedJobID(ctx context.Context, fingerprint string) (uuid.UUID, bool, error) {
	if c.err != nil {
		return uuid.Nil, false, c.err
	}
	id, ok := c.entries[fingerprint]
	return id, ok, nil
}

func (c *fakeCache) SetFinishedJobID(ctx context.Context, fingerprint string, id uuid.UUID) error {
	if c.err != nil {
		return c.err
	}
	if c.entries == nil {
		c.entries = make(map[string]uuid.UUID)
	}
	c.entries[fingerprint] = id
	return nil
}

type fakePublisher struct {
	queues []string
}

func (p *fakePublisher) PublishJSON(ctx context.Context, queue string, v any) error {
	p.queues = append(p.queues, queue)
	return nil
}

type fakeNotifier struct {
	notified []domain.OptimizationJob
}

func (n *fakeNotifier) NotifyJobFinished(ctx context.Context, job *domain.OptimizationJob) error {
	n.notified = append(n.notified, *job)
	return nil
}

var jobProblem = domain.Problem{
	MaxTime: 1440,
	Tasks: []domain.Task{
		{Title: "复习", Priority: 1, Duration: 120},
		{Title: "跑步", Priority: 2, Duration: 30},
	},
	ReservedTimes: []domain.ReservedTime{
		{Title: "睡觉", StartOffset: 0, Duration: 420, Period: 1440},
	},
}

func finishedJob(t *testing.T, email string) *domain.OptimizationJob {
	t.Helper()

	p := jobProblem
	p.NotifyEmail = email
	fp, err := p.Fingerprint()
	require.NoError(t, err)

	return &domain.OptimizationJob{
		ID:          uuid.New(),
		Fingerprint: fp,
		Status:      domain.JobStatusFinished,
		Problem:     p,
		Result:      &domain.OptimizationResult{BestSchedule: []int{420, 540}, BestFitness: 0, Generations: 200},
	}
}

func TestCreateOptimizationJob(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{}
	h := newTestHandlerWith(t, store, publisher, &fakeCache{}, &fakeNotifier{})

	resp := do(t, h, http.MethodPost, "/optimization-jobs", validToken(t), jobProblem)
	require.True(t, resp.Success, resp.Message)

	require.Len(t, store.created, 1)
	assert.Equal(t, domain.JobStatusPending, store.created[0].Status)
	assert.Equal(t, []string{"optimization_queue"}, publisher.queues)
}

func TestCreateOptimizationJobReusesFinishedJobWithoutLeakingEmail(t *testing.T) {
	previous := finishedJob(t, "first@example.com")
	store := newFakeStore(previous)
	publisher := &fakePublisher{}
	cache := &fakeCache{}
	notifier := &fakeNotifier{}
	h := newTestHandlerWith(t, store, publisher, cache, notifier)

	req := jobProblem
	req.NotifyEmail = "second@example.com"
	resp := do(t, h, http.MethodPost, "/optimization-jobs", validToken(t), req)
	require.True(t, resp.Success, resp.Message)

	assert.NotContains(t, string(resp.Data), "first@example.com")
	var job domain.OptimizationJob
	require.NoError(t, json.Unmarshal(resp.Data, &job))
	assert.Equal(t, previous.ID, job.ID)
	assert.Empty(t, job.Problem.NotifyEmail)

	// 不会重新优化
	assert.Empty(t, store.created)
	assert.Empty(t, publisher.queues)

	// 通知发给新的调用方，已保存的任务不受影响
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, "second@example.com", notifier.notified[0].Problem.NotifyEmail)
	assert.Equal(t, previous.ID, notifier.notified[0].ID)
	assert.Equal(t, "first@example.com", previous.Problem.NotifyEmail)

	// 数据库命中后写回缓存
	assert.Equal(t, previous.ID, cache.entries[previous.Fingerprint])
}

func TestCreateOptimizationJobUsesCachedJob(t *testing.T) {
	previous := finishedJob(t, "first@example.com")
	store := newFakeStore(previous)
	cache := &fakeCache{entries: map[string]uuid.UUID{previous.Fingerprint: previous.ID}}
	notifier := &fakeNotifier{}
	h := newTestHandlerWith(t, store, &fakePublisher{}, cache, notifier)

	resp := do(t, h, http.MethodPost, "/optimization-jobs", validToken(t), jobProblem)
	require.True(t, resp.Success, resp.Message)
	assert.NotContains(t, string(resp.Data), "first@example.com")

	// 没有提供邮箱时不发送通知
	assert.Empty(t, notifier.notified)
	assert.Empty(t, store.created)
}

func TestCreateOptimizationJobFallsBackWhenCacheFails(t *testing.T) {
	previous := finishedJob(t, "")
	store := newFakeStore(previous)
	h := newTestHandlerWith(t, store, &fakePublisher{}, &fakeCache{err: errors.New("redis 不可用")}, &fakeNotifier{})

	resp := do(t, h, http.MethodPost, "/optimization-jobs", validToken(t), jobProblem)
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "相同的问题已经优化过", resp.Message)
	assert.Empty(t, store.created)
}

func TestGetOptimizationJobHidesNotifyEmail(t *testing.T) {
	job := finishedJob(t, "first@example.com")
	h := newTestHandlerWith(t, newFakeStore(job), nil, nil, nil)

	resp := do(t, h, http.MethodGet, "/optimization-jobs/"+job.ID.String(), validToken(t), nil)
	require.True(t, resp.Success, resp.Message)
	assert.NotContains(t, string(resp.Data), "first@example.com")

	resp = do(t, h, http.MethodGet, "/optimization-jobs/"+job.ID.String()+"/stats", validToken(t), nil)
	require.True(t, resp.Success, resp.Message)

	resp = do(t, h, http.MethodGet, "/optimization-jobs/"+uuid.NewString(), validToken(t), nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "任务不存在", resp.Message)
}

func TestRejectsOversizedProblem(t *testing.T) {
	store := newFakeStore()
	h := newTestHandlerWith(t, store, &fakePublisher{}, &fakeCache{}, &fakeNotifier{})

	// 每分钟一次的保留时间展开后有 1441 次
	dense := map[string]any{
		"maxTime":       1440,
		"reservedTimes": []map[string]any{{"title": "r", "startOffset": 0, "duration": 1, "period": 1}},
	}
	resp := do(t, h, http.MethodPost, "/fitness", "", map[string]any{"problem": dense, "schedule": []int{}})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "总次数")

	resp = do(t, h, http.MethodPost, "/optimization-jobs", validToken(t), dense)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "总次数")

	huge := map[string]any{
		"maxTime":       int64(1) << 40,
		"reservedTimes": []map[string]any{{"title": "r", "startOffset": 0, "duration": 1, "period": 1}},
	}
	resp = do(t, h, http.MethodPost, "/fitness", "", map[string]any{"problem": huge, "schedule": []int{}})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "时间上界")

	assert.Empty(t, store.created)
}
