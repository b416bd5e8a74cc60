package statslog

import (
	"slices"
	"sync"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

// Collector 在内存中保存每一代的统计数据，便于之后写入数据库
type Collector struct {
	mu    sync.Mutex
	stats []domain.GenerationStats
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) ObserveGeneration(stats domain.GenerationStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = append(c.stats, stats)
}

func (c *Collector) Stats() []domain.GenerationStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.stats)
}
