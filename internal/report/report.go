// Package report 把优化结果渲染成终端中的表格
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

const minutesPerDay = 24 * 60

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	reservedStyle = lipgloss.NewStyle().Padding(0, 1).Faint(true)
)

// FormatMinutes 把分钟偏移量格式化为 "天 时:分"，第 0 天从 0 开始
func FormatMinutes(m int) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d %02d:%02d", sign, m/minutesPerDay, m%minutesPerDay/60, m%60)
}

type row struct {
	kind     string
	interval domain.Interval
}

// Render 渲染最优排班
// result.Intervals 中前 len(result.BestSchedule) 个是任务区间，其余是保留时间区间
func Render(result *domain.OptimizationResult) string {
	nTasks := min(len(result.BestSchedule), len(result.Intervals))

	rows := make([]row, 0, len(result.Intervals))
	for i, iv := range result.Intervals {
		kind := "任务"
		if i >= nTasks {
			kind = "保留"
		}
		rows = append(rows, row{kind: kind, interval: iv})
	}

	slices.SortStableFunc(rows, func(a, b row) int {
		return cmp.Compare(a.interval.Start, b.interval.Start)
	})

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("类型", "标题", "开始", "结束", "时长").
		StyleFunc(func(r, c int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			if r >= 0 && r < len(rows) && rows[r].kind == "保留" {
				return reservedStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		t.Row(
			r.kind,
			r.interval.Label,
			FormatMinutes(r.interval.Start),
			FormatMinutes(r.interval.End),
			strconv.Itoa(r.interval.Length()),
		)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("最优适应度: %d  代数: %d  耗时: %dms", result.BestFitness, result.Generations, result.DurationMS)))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")

	return b.String()
}
