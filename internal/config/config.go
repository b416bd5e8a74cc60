package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/scheduler"
)

type Optimizer struct {
	Seed                 int64   `env:"SEED" envDefault:"12"`
	GenSize              int     `env:"GEN_SIZE" envDefault:"50"`
	MutationP            float64 `env:"MUTATION_P" envDefault:"0.3"`
	MutationStdDev       float64 `env:"MUTATION_STD_DEV" envDefault:"60"`
	SelectionT           int     `env:"SELECTION_T" envDefault:"2"`
	Workers              int     `env:"WORKERS" envDefault:"1"`
	MaxMutationAttempts  int     `env:"MAX_MUTATION_ATTEMPTS" envDefault:"10000"`
	DefaultGenerations   int     `env:"DEFAULT_GENERATIONS" envDefault:"200"`
	MaxGenerations       int     `env:"MAX_GENERATIONS" envDefault:"5000"` // 单个任务允许的最大代数
	MaxTasks             int     `env:"MAX_TASKS" envDefault:"500"`
	MaxTime              int     `env:"MAX_TIME" envDefault:"527040"`               // 时间上界的最大值，默认 366 天
	MaxReservedIntervals int     `env:"MAX_RESERVED_INTERVALS" envDefault:"100000"` // 保留时间在时间上界内展开后的最大总次数
}

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
		Issuer     string `env:"ISSUER" envDefault:"genetic-scheduler"`
	} `envPrefix:"JWT_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN               string `env:"DSN,required"`
		PublishTimeout    int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
		OptimizationQueue string `env:"OPTIMIZATION_QUEUE" envDefault:"optimization_queue"`
		EmailQueue        string `env:"EMAIL_QUEUE" envDefault:"email_queue"`
		Prefetch          int    `env:"PREFETCH" envDefault:"1"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Cache struct {
		ResultTTL int `env:"RESULT_TTL" envDefault:"86400"` // 1 天
	} `envPrefix:"CACHE_"`
	Metrics struct {
		Addr string `env:"ADDR" envDefault:":9100"` // worker 暴露指标的地址
	} `envPrefix:"METRICS_"`
	Optimizer Optimizer `envPrefix:"OPTIMIZER_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}

// LoadOptimizerConfig 只读取遗传算法相关的配置，命令行工具不需要数据库等配置
func LoadOptimizerConfig() (*Optimizer, error) {
	cfg := &Optimizer{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "OPTIMIZER_"}); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}

func firstError(err error) error {
	aggErr := env.AggregateError{}
	if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
		// 只返回第一个错误使得日志更清晰
		return aggErr.Errors[0]
	}
	return err
}

// Parameters 转换为遗传算法参数，权重沿用默认值
func (o *Optimizer) Parameters() *scheduler.Parameters {
	p := scheduler.DefaultParameters()
	p.Seed = o.Seed
	p.GenSize = o.GenSize
	p.MutationP = o.MutationP
	p.MutationStdDev = o.MutationStdDev
	p.SelectionT = o.SelectionT
	p.Workers = o.Workers
	p.MaxMutationAttempts = o.MaxMutationAttempts
	return p
}

// CheckLimits 检查问题规模是否超出服务端限制，限制为 0 时不检查
// 调用方需要先用 utils.ValidateProblem 保证保留时间的起始偏移不超过时间上界
func (o *Optimizer) CheckLimits(p *domain.Problem) error {
	if o.MaxTasks > 0 && len(p.Tasks) > o.MaxTasks {
		return fmt.Errorf("任务数量不能超过 %d", o.MaxTasks)
	}
	if o.MaxGenerations > 0 && p.Generations > o.MaxGenerations {
		return fmt.Errorf("代数不能超过 %d", o.MaxGenerations)
	}
	if o.MaxTime > 0 && p.MaxTime > o.MaxTime {
		return fmt.Errorf("时间上界不能超过 %d", o.MaxTime)
	}

	if o.MaxReservedIntervals > 0 {
		total := 0
		for _, rt := range p.ReservedTimes {
			total += max(rt.Count(p.MaxTime), 0)
			if total > o.MaxReservedIntervals {
				return fmt.Errorf("保留时间展开后的总次数不能超过 %d", o.MaxReservedIntervals)
			}
		}
	}

	return nil
}
