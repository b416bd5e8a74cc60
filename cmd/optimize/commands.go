package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/loader"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/report"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/statslog"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/utils"
)

type runOptions struct {
	file        string
	generations int
	seed        int64
	workers     int
	statsPath   string
	asJSON      bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "optimize",
		Short:         "用遗传算法在本地为任务安排开始时间",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newRunCmd(), newFitnessCmd())

	return root
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "运行遗传算法并输出最优排班",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "问题文件（.yaml / .yml / .json）")
	cmd.Flags().IntVarP(&opts.generations, "generations", "g", 0, "迭代代数，默认使用问题文件中的值")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "随机数种子，默认使用问题文件或环境变量中的值")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "并行计算适应度的 goroutine 数量")
	cmd.Flags().StringVar(&opts.statsPath, "stats", "", "把每一代的统计数据写入 CSV 文件")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "以 JSON 格式输出结果")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出每一代的日志")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runOptimize(cmd *cobra.Command, opts *runOptions) error {
	p, err := loader.Load(opts.file)
	if err != nil {
		return err
	}

	optimizer, err := config.LoadOptimizerConfig()
	if err != nil {
		return err
	}

	// 优先级：命令行参数 > 问题文件 > 环境变量
	parameters := optimizer.Parameters()
	if p.Seed != nil {
		parameters.Seed = *p.Seed
	}
	if cmd.Flags().Changed("seed") {
		parameters.Seed = opts.seed
	}
	if cmd.Flags().Changed("workers") {
		parameters.Workers = opts.workers
	}

	nGenerations := p.Generations
	if nGenerations == 0 {
		nGenerations = optimizer.DefaultGenerations
	}
	if cmd.Flags().Changed("generations") {
		nGenerations = opts.generations
	}
	if nGenerations < 0 {
		return errors.New("迭代代数不能为负数")
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	schedulerOpts := []scheduler.Option{scheduler.WithLogger(logger)}

	var statsWriter *statslog.CSVWriter
	if opts.statsPath != "" {
		statsWriter, err = statslog.CreateCSVFile(opts.statsPath, p.Tasks)
		if err != nil {
			return err
		}
		schedulerOpts = append(schedulerOpts, scheduler.WithObserver(statsWriter))
	}

	s, err := scheduler.New(parameters, p.MaxTime, p.Tasks, p.ReservedTimes, schedulerOpts...)
	if err != nil {
		if statsWriter != nil {
			return errors.Join(err, statsWriter.Close())
		}
		return err
	}

	start := time.Now()
	pop, runErr := s.Run(nGenerations)
	if statsWriter != nil {
		if err := statsWriter.Close(); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return runErr
	}

	best, fitness := s.Best(pop)
	result := &domain.OptimizationResult{
		BestSchedule: best,
		BestFitness:  fitness,
		Intervals:    s.Intervals(best),
		Generations:  nGenerations,
		DurationMS:   time.Since(start).Milliseconds(),
	}

	logger.Info("优化完成", "seed", parameters.Seed, "generations", nGenerations, "bestFitness", fitness)

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), report.Render(result))
	return err
}

func newFitnessCmd() *cobra.Command {
	var file string
	var schedule []int

	cmd := &cobra.Command{
		Use:   "fitness",
		Short: "计算给定排班的适应度",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loader.Load(file)
			if err != nil {
				return err
			}
			if err := utils.ValidateScheduleWithProblem(schedule, p); err != nil {
				return err
			}

			s, err := scheduler.New(nil, p.MaxTime, p.Tasks, p.ReservedTimes)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "适应度: %d\n", s.Fitness(scheduler.Schedule(schedule)))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "问题文件（.yaml / .yml / .json）")
	cmd.Flags().IntSliceVar(&schedule, "schedule", nil, "每个任务的开始时间，用逗号分隔")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("schedule")

	return cmd
}
