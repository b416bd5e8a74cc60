package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/handler"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/loader"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/queue"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/seed"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/utils"
)

func main() {
	var op string
	var n int
	var tasks, reserved, days, generations int
	var in, out, sub string

	flag.StringVar(&op, "op", "", "要执行的操作 (problem: 生成随机问题文件, import: 从 CSV 导入问题文件, job: 插入随机优化任务, token: 签发令牌)")
	flag.IntVar(&n, "n", 5, "要插入的任务数量")
	flag.IntVar(&tasks, "tasks", 10, "随机问题中的任务数量")
	flag.IntVar(&reserved, "reserved", 2, "随机问题中的保留时间数量")
	flag.IntVar(&days, "days", 7, "随机问题覆盖的天数，同时决定时间上界")
	flag.IntVar(&generations, "generations", 200, "随机问题的迭代代数")
	flag.StringVar(&in, "f", "", "import 操作读取的 CSV 文件")
	flag.StringVar(&out, "o", "problem.yaml", "problem / import 操作输出的问题文件")
	flag.StringVar(&sub, "sub", "seed", "令牌的 subject")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 不需要连接外部服务的操作
	switch op {
	case "":
		slog.Error("未指定操作")
		return
	case "problem":
		if tasks < 0 || reserved < 0 || days <= 0 {
			slog.Error("请输入合法的问题规模")
			return
		}

		p := utils.GenerateRandomProblem(tasks, reserved, days, generations)
		if err := writeProblem(p, out); err != nil {
			slog.Error("无法写入问题文件", slog.String("error", err.Error()))
			return
		}

		slog.Info("生成问题文件成功", slog.String("path", out), slog.Int("tasks", len(p.Tasks)), slog.Int("reserved", len(p.ReservedTimes)))
		return
	case "import":
		if days <= 0 {
			slog.Error("请输入合法的天数")
			return
		}

		file, err := os.Open(in)
		if err != nil {
			slog.Error("打开文件失败", slog.String("error", err.Error()))
			return
		}
		defer file.Close()

		p, err := seed.ProblemFromCSV(file, days*24*60, generations)
		if err != nil {
			slog.Error("导入失败", slog.String("error", err.Error()))
			return
		}

		if err := loader.Validate(p); err != nil {
			slog.Error("导入的问题无效", slog.String("error", err.Error()))
			return
		}

		if err := writeProblem(p, out); err != nil {
			slog.Error("无法写入问题文件", slog.String("error", err.Error()))
			return
		}

		slog.Info("导入问题成功", slog.String("path", out), slog.Int("tasks", len(p.Tasks)), slog.Int("reserved", len(p.ReservedTimes)))
		return
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	switch op {
	case "token":
		token, err := handler.IssueToken(cfg.JWT.Secret, cfg.JWT.Issuer, sub, time.Duration(cfg.JWT.Expiration)*time.Second)
		if err != nil {
			slog.Error("无法签发令牌", slog.String("error", err.Error()))
			return
		}
		fmt.Println(token)
	case "job":
		if n <= 0 {
			slog.Error("请输入合法的任务数量")
			return
		}
		seedJobs(cfg, n, tasks, reserved, days, generations)
	default:
		slog.Error("指定的操作非法", slog.String("op", op))
	}
}

func writeProblem(p *domain.Problem, path string) error {
	format, err := loader.FormatOf(path)
	if err != nil {
		return err
	}

	data, err := loader.Marshal(p, format)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func seedJobs(cfg *config.Config, n, tasks, reserved, days, generations int) {
	dbpool, err := repository.Open(cfg)
	if err != nil {
		slog.Error("无法连接到数据库", "error", err)
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		slog.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		slog.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	if err := queue.DeclareQueues(ch, cfg.RabbitMQ.OptimizationQueue); err != nil {
		slog.Error("无法声明队列", "error", err)
		return
	}

	publisher := queue.NewPublisher(ch, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)

	cnt := 0
	for i := 0; i < n; i++ {
		p := utils.GenerateRandomProblem(tasks, reserved, days, generations)

		fingerprint, err := p.Fingerprint()
		if err != nil {
			slog.Error("无法计算问题指纹", slog.String("error", err.Error()))
			continue
		}

		job := &domain.OptimizationJob{
			ID:          uuid.New(),
			Fingerprint: fingerprint,
			Status:      domain.JobStatusPending,
			Problem:     *p,
		}
		if err := repo.CreateOptimizationJob(job); err != nil {
			slog.Error("无法插入优化任务", slog.String("error", err.Error()))
			continue
		}

		if err := publisher.PublishJSON(context.Background(), cfg.RabbitMQ.OptimizationQueue, domain.OptimizationMessage{JobID: job.ID.String()}); err != nil {
			slog.Error("无法投递优化任务", slog.String("error", err.Error()))
			continue
		}

		cnt++
	}

	slog.Info("插入优化任务成功", slog.Int("count", cnt))
}
