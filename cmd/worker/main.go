package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/cache"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/queue"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/runner"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := repository.Open(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	resultCache := cache.NewFromConfig(cfg)
	defer resultCache.Close()

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 消费与投递使用不同的通道
	consumeCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer consumeCh.Close()

	publishCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer publishCh.Close()

	if err := queue.DeclareQueues(consumeCh, cfg.RabbitMQ.OptimizationQueue, cfg.RabbitMQ.EmailQueue); err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 遗传算法很耗 CPU，一次只取有限条消息
	if err := consumeCh.Qos(cfg.RabbitMQ.Prefetch, 0, false); err != nil {
		logger.Error("无法设置预取数量", slog.String("error", err.Error()))
		return
	}

	msgs, err := consumeCh.Consume(
		cfg.RabbitMQ.OptimizationQueue,
		"",
		false, // 手动确认，任务执行完成后才确认
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	/**********************************************
	 * 创建 runner
	 **********************************************/
	publisher := queue.NewPublisher(publishCh, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	notifier := queue.NewMailNotifier(publisher, cfg.RabbitMQ.EmailQueue)
	r := runner.New(repo, resultCache, notifier, &cfg.Optimizer, runner.WithLogger(logger))

	/**********************************************
	 * 暴露指标
	 **********************************************/
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:     cfg.Metrics.Addr,
		Handler:  mux,
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	go func() {
		logger.Info("正在暴露指标...", "addr", cfg.Metrics.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动指标服务器", slog.String("error", err.Error()))
		}
	}()

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 用于关闭 goroutine 的上下文
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}
				handleMessage(ctx, logger, r, msg)
			}
		}
	}()

	logger.Info("等待优化任务...（按 CTRL+C 退出）")
	<-sigChan

	// 优雅退出，正在执行的任务会在结束后被重新入队
	slog.Info("正在关闭 optimization worker...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭指标服务器失败", slog.String("error", err.Error()))
	}
	slog.Info("optimization worker 已成功关闭")
}

func handleMessage(ctx context.Context, logger *slog.Logger, r *runner.Runner, msg amqp.Delivery) {
	logger.Info("收到消息", slog.String("message", string(msg.Body)))

	var m domain.OptimizationMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		logger.Error("消息反序列化失败", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}

	jobID, err := uuid.Parse(m.JobID)
	if err != nil {
		logger.Error("任务ID无效", slog.String("jobID", m.JobID))
		_ = msg.Nack(false, false)
		return
	}

	err = r.ExecuteByID(ctx, jobID)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, runner.ErrJobFailed):
		// 失败已经记录在任务中，重试不会成功
		_ = msg.Ack(false)
	case errors.Is(err, sql.ErrNoRows):
		logger.Error("任务不存在", slog.String("jobID", m.JobID))
		_ = msg.Nack(false, false)
	default:
		logger.Error("任务执行中断，重新入队", slog.String("jobID", m.JobID), slog.String("error", err.Error()))
		_ = msg.Nack(false, true)
	}
}
