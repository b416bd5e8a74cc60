package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

// 表头名称 -> 字段，中英文表头均可
var HeaderMap = map[string]string{
	"类型":           "kind",
	"kind":         "kind",
	"标题":           "title",
	"title":        "title",
	"优先级":          "priority",
	"priority":     "priority",
	"时长":           "duration",
	"duration":     "duration",
	"开始":           "start_offset",
	"start_offset": "start_offset",
	"周期":           "period",
	"period":       "period",
}

// 周期的别名，单位为分钟
var PeriodAliases = map[string]int{
	"每天": 24 * 60,
	"每周": 7 * 24 * 60,
}

var ErrMissingColumn = errors.New("缺少必要的列")

// ProblemFromCSV 从表格导出的 CSV 中读取任务与保留时间
// 每一行是一个任务（类型为“任务”或 task）或一个保留时间（类型为“保留”或 reserved）
func ProblemFromCSV(r io.Reader, maxTime, generations int) (*domain.Problem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	columns := make(map[string]int)
	for i, header := range headers {
		if field, ok := HeaderMap[strings.ToLower(strings.TrimSpace(header))]; ok {
			columns[field] = i
		}
	}
	for _, field := range []string{"kind", "title", "duration"} {
		if _, ok := columns[field]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, field)
		}
	}

	p := &domain.Problem{
		MaxTime:       maxTime,
		Generations:   generations,
		Tasks:         []domain.Task{},
		ReservedTimes: []domain.ReservedTime{},
	}

	line := 1
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("读取文件失败: %w", err)
		}
		line++

		record := make(map[string]string)
		for field, i := range columns {
			if i < len(row) {
				record[field] = strings.TrimSpace(row[i])
			}
		}

		duration, err := strconv.Atoi(record["duration"])
		if err != nil {
			return nil, fmt.Errorf("第 %d 行的时长无效: %q", line, record["duration"])
		}

		switch strings.ToLower(record["kind"]) {
		case "任务", "task":
			priority := 0
			if record["priority"] != "" {
				priority, err = strconv.Atoi(record["priority"])
				if err != nil {
					return nil, fmt.Errorf("第 %d 行的优先级无效: %q", line, record["priority"])
				}
			}

			p.Tasks = append(p.Tasks, domain.Task{
				Title:    record["title"],
				Priority: priority,
				Duration: duration,
			})
		case "保留", "reserved":
			startOffset, err := ParseClock(record["start_offset"])
			if err != nil {
				return nil, fmt.Errorf("第 %d 行的开始时间无效: %w", line, err)
			}

			period, err := ParsePeriod(record["period"])
			if err != nil {
				return nil, fmt.Errorf("第 %d 行的周期无效: %w", line, err)
			}

			p.ReservedTimes = append(p.ReservedTimes, domain.ReservedTime{
				Title:       record["title"],
				StartOffset: startOffset,
				Duration:    duration,
				Period:      period,
			})
		default:
			return nil, fmt.Errorf("第 %d 行的类型无效: %q", line, record["kind"])
		}
	}

	return p, nil
}

// ParseClock 解析 "HH:MM"（也接受全角冒号）或者直接给出的分钟数
func ParseClock(s string) (int, error) {
	s = strings.ReplaceAll(s, "：", ":")

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return strconv.Atoi(s)
	}

	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	if hours < 0 || minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("无效的时间 %q", s)
	}

	return hours*60 + minutes, nil
}

// ParsePeriod 解析“每天”“每周”或者直接给出的分钟数
func ParsePeriod(s string) (int, error) {
	if period, ok := PeriodAliases[s]; ok {
		return period, nil
	}
	return strconv.Atoi(s)
}
