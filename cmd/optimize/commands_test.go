package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

const problemYAML = `
max_time: 1440
generations: 20
seed: 5
tasks:
  - title: 复习
    priority: 1
    duration: 120
  - title: 跑步
    priority: 2
    duration: 45
  - title: 洗衣服
    priority: 3
    duration: 30
reserved_times:
  - title: 睡觉
    start_offset: 0
    duration: 420
    period: 1440
`

func writeProblem(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(problemYAML), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, args ...string) domain.OptimizationResult {
	t.Helper()

	out, err := execute(t, append([]string{"run", "--json"}, args...)...)
	require.NoError(t, err)

	var result domain.OptimizationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	return result
}

func TestRunRendersTable(t *testing.T) {
	out, err := execute(t, "run", "-f", writeProblem(t))
	require.NoError(t, err)

	assert.Contains(t, out, "最优适应度")
	assert.Contains(t, out, "睡觉")
	assert.Contains(t, out, "洗衣服")
}

func TestRunJSON(t *testing.T) {
	path := writeProblem(t)

	result := runJSON(t, "-f", path)
	assert.Equal(t, 20, result.Generations)
	assert.Len(t, result.BestSchedule, 3)
	assert.Len(t, result.Intervals, 3+2) // 睡觉在第 0 分钟和第 1440 分钟各出现一次

	// 相同的种子得到相同的结果
	again := runJSON(t, "-f", path, "--workers", "4")
	assert.Equal(t, result.BestSchedule, again.BestSchedule)
	assert.Equal(t, result.BestFitness, again.BestFitness)

	other := runJSON(t, "-f", path, "-g", "0")
	assert.Equal(t, 0, other.Generations)
}

func TestRunWritesStats(t *testing.T) {
	stats := filepath.Join(t.TempDir(), "output.csv")

	_, err := execute(t, "run", "-f", writeProblem(t), "-g", "7", "--stats", stats)
	require.NoError(t, err)

	data, err := os.ReadFile(stats)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 1+7)
	assert.Equal(t, "BestFitness,AvgFitness,复习,跑步,洗衣服", lines[0])
}

func TestRunClosesStatsWhenParametersAreInvalid(t *testing.T) {
	t.Setenv("OPTIMIZER_GEN_SIZE", "1")
	stats := filepath.Join(t.TempDir(), "output.csv")

	_, err := execute(t, "run", "-f", writeProblem(t), "--stats", stats)
	require.Error(t, err)

	// 关闭时才会把缓冲的表头写入文件
	data, err := os.ReadFile(stats)
	require.NoError(t, err)
	assert.Equal(t, "BestFitness,AvgFitness,复习,跑步,洗衣服", strings.TrimSpace(string(data)))
}

func TestRunRequiresFile(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)

	_, err = execute(t, "run", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFitness(t *testing.T) {
	path := writeProblem(t)

	// 全部安排在睡觉之后且按优先级先后排列，互不重叠
	out, err := execute(t, "fitness", "-f", path, "--schedule", "480,600,645")
	require.NoError(t, err)
	assert.Equal(t, "适应度: 0\n", out)

	// 复习与跑步重叠 45 分钟，复习与睡觉重叠 60 分钟：45 + 60*0.3
	out, err = execute(t, "fitness", "-f", path, "--schedule", "360,420,645")
	require.NoError(t, err)
	assert.Equal(t, "适应度: 63\n", out)

	_, err = execute(t, "fitness", "-f", path, "--schedule", "1,2")
	assert.Error(t, err)
}
