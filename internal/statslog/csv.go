// Package statslog 记录每一代的统计数据
package statslog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

// CSVWriter 把每一代的最优适应度、平均适应度以及最优个体写成一行
// 表头为 BestFitness,AvgFitness,<任务标题...>
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	w      *csv.Writer
	err    error // 第一次写入失败的错误
}

// NewCSVWriter 写入表头，tasks 决定了后续每一列的含义
func NewCSVWriter(w io.Writer, tasks []domain.Task) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}

	header := make([]string, 0, len(tasks)+2)
	header = append(header, "BestFitness", "AvgFitness")
	for _, task := range tasks {
		header = append(header, task.Title)
	}

	if err := cw.w.Write(header); err != nil {
		return nil, err
	}

	return cw, nil
}

// CreateCSVFile 创建（覆盖）path 并写入表头
func CreateCSVFile(path string, tasks []domain.Task) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	cw, err := NewCSVWriter(f, tasks)
	if err != nil {
		f.Close()
		return nil, err
	}
	cw.closer = f

	return cw, nil
}

func (cw *CSVWriter) ObserveGeneration(stats domain.GenerationStats) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.err != nil {
		return
	}

	rec := make([]string, 0, len(stats.BestSchedule)+2)
	rec = append(rec,
		strconv.Itoa(stats.BestFitness),
		strconv.FormatFloat(stats.AvgFitness, 'f', -1, 64),
	)
	for _, start := range stats.BestSchedule {
		rec = append(rec, strconv.Itoa(start))
	}

	cw.err = cw.w.Write(rec)
}

// Flush 把缓冲区写出，并返回之前任何一次写入的错误
func (cw *CSVWriter) Flush() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.w.Flush()
	if cw.err != nil {
		return cw.err
	}
	return cw.w.Error()
}

func (cw *CSVWriter) Close() error {
	err := cw.Flush()
	if cw.closer != nil {
		if cerr := cw.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
