package statslog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

var testTasks = []domain.Task{
	{Title: "复习", Priority: 1, Duration: 60},
	{Title: "跑步", Priority: 2, Duration: 30},
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	cw, err := NewCSVWriter(&buf, testTasks)
	require.NoError(t, err)

	cw.ObserveGeneration(domain.GenerationStats{Generation: 0, BestFitness: 120, AvgFitness: 340.5, BestSchedule: []int{10, 90}})
	cw.ObserveGeneration(domain.GenerationStats{Generation: 1, BestFitness: 0, AvgFitness: 12, BestSchedule: []int{0, 60}})
	require.NoError(t, cw.Flush())

	assert.Equal(t, "BestFitness,AvgFitness,复习,跑步\n120,340.5,10,90\n0,12,0,60\n", buf.String())
}

func TestCreateCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	cw, err := CreateCSVFile(path, testTasks)
	require.NoError(t, err)

	cw.ObserveGeneration(domain.GenerationStats{BestFitness: 1, AvgFitness: 2, BestSchedule: []int{3, 4}})
	require.NoError(t, cw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BestFitness,AvgFitness,复习,跑步\n1,2,3,4\n", string(data))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("磁盘已满")
}

func TestCSVWriterReportsWriteError(t *testing.T) {
	cw, err := NewCSVWriter(failingWriter{}, testTasks)
	require.NoError(t, err) // 表头还在缓冲区中

	cw.ObserveGeneration(domain.GenerationStats{BestSchedule: []int{1, 2}})
	assert.Error(t, cw.Flush())
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.ObserveGeneration(domain.GenerationStats{Generation: 0, BestFitness: 3})
	c.ObserveGeneration(domain.GenerationStats{Generation: 1, BestFitness: 2})

	stats := c.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats[1].BestFitness)

	stats[0].BestFitness = 100
	assert.Equal(t, 3, c.Stats()[0].BestFitness)
}
